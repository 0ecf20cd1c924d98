// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package gcpclient

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/trace"
)

// BigQueryClient wraps a BigQuery client with OpenTelemetry tracing.
type BigQueryClient struct {
	Client *bigquery.Client
	Tracer trace.Tracer
}

// GetBigQuery returns a cached BigQuery client for the configured project.
func (m *Manager) GetBigQuery(ctx context.Context, opts ...ClientOption) (*BigQueryClient, error) {
	cfg := buildConfig(opts)
	if cfg.ProjectID == "" {
		return nil, errors.New("bigquery client requires a project id")
	}
	key := clientKey(cfg)

	m.RLock()
	client, ok := m.bigqueryClients[key]
	m.RUnlock()
	if ok {
		return client, nil
	}

	m.Lock()
	defer m.Unlock()
	if client, ok = m.bigqueryClients[key]; ok {
		return client, nil
	}

	clientOpts, err := m.clientOptions(ctx, cfg, bigquery.Scope)
	if err != nil {
		return nil, err
	}
	bq, err := bigquery.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating BigQuery client for project %s: %w", cfg.ProjectID, err)
	}

	client = &BigQueryClient{Client: bq, Tracer: m.tracer}
	m.bigqueryClients[key] = client
	return client, nil
}
