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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
)

// Manager handles GCP client creation and caching using Application Default
// Credentials. Clients are released by Close.
type Manager struct {
	sync.RWMutex
	storageClients  map[clientKey]*StorageClient
	bigqueryClients map[clientKey]*BigQueryClient
	pubsubClients   map[clientKey]*PubSubClient
	tracer          trace.Tracer

	// extra options appended to every client, used by tests to point at
	// emulators.
	baseOpts []option.ClientOption
}

// clientKey is used for caching clients.
type clientKey struct {
	ProjectID           string
	ServiceAccountEmail string
}

// clientConfig holds configuration for creating a client.
type clientConfig struct {
	ProjectID           string
	ServiceAccountEmail string
}

// ClientOption is a functional option for the Get* methods.
type ClientOption func(*clientConfig)

// WithImpersonateServiceAccount sets the service account email to impersonate.
func WithImpersonateServiceAccount(email string) ClientOption {
	return func(c *clientConfig) {
		c.ServiceAccountEmail = email
	}
}

// WithProject selects the GCP project for BigQuery and Pub/Sub clients.
func WithProject(projectID string) ClientOption {
	return func(c *clientConfig) {
		c.ProjectID = projectID
	}
}

// NewManager creates a new GCP client manager.
func NewManager(_ context.Context, opts ...option.ClientOption) (*Manager, error) {
	return &Manager{
		storageClients:  make(map[clientKey]*StorageClient),
		bigqueryClients: make(map[clientKey]*BigQueryClient),
		pubsubClients:   make(map[clientKey]*PubSubClient),
		tracer:          otel.Tracer("github.com/cardinalhq/strikeetl/internal/gcpclient"),
		baseOpts:        opts,
	}, nil
}

func buildConfig(opts []ClientOption) clientConfig {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// clientOptions returns the option set for a config, impersonating the
// configured service account with the given scopes when one is set.
func (m *Manager) clientOptions(ctx context.Context, cfg clientConfig, scopes ...string) ([]option.ClientOption, error) {
	clientOpts := append([]option.ClientOption(nil), m.baseOpts...)
	if cfg.ServiceAccountEmail == "" {
		return clientOpts, nil
	}
	ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
		TargetPrincipal: cfg.ServiceAccountEmail,
		Scopes:          scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("creating impersonated token source: %w", err)
	}
	return append(clientOpts, option.WithTokenSource(ts)), nil
}

// Close releases every cached client.
func (m *Manager) Close() error {
	m.Lock()
	defer m.Unlock()

	var errs []error
	for k, c := range m.storageClients {
		if err := c.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage client: %w", err))
		}
		delete(m.storageClients, k)
	}
	for k, c := range m.bigqueryClients {
		if err := c.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing bigquery client for %s: %w", k.ProjectID, err))
		}
		delete(m.bigqueryClients, k)
	}
	for k, c := range m.pubsubClients {
		if err := c.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing pubsub client for %s: %w", k.ProjectID, err))
		}
		delete(m.pubsubClients, k)
	}
	return errors.Join(errs...)
}
