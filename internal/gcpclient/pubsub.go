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

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/trace"
)

// PubSubClient wraps a Pub/Sub client with OpenTelemetry tracing.
type PubSubClient struct {
	Client *pubsub.Client
	Tracer trace.Tracer
}

// GetPubSub returns a cached Pub/Sub client for the configured project.
func (m *Manager) GetPubSub(ctx context.Context, opts ...ClientOption) (*PubSubClient, error) {
	cfg := buildConfig(opts)
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub client requires a project id")
	}
	key := clientKey(cfg)

	m.RLock()
	client, ok := m.pubsubClients[key]
	m.RUnlock()
	if ok {
		return client, nil
	}

	m.Lock()
	defer m.Unlock()
	if client, ok = m.pubsubClients[key]; ok {
		return client, nil
	}

	clientOpts, err := m.clientOptions(ctx, cfg, pubsub.ScopePubSub)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating Pub/Sub client for project %s: %w", cfg.ProjectID, err)
	}

	client = &PubSubClient{Client: ps, Tracer: m.tracer}
	m.pubsubClients[key] = client
	return client, nil
}
