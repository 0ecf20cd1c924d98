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
	"fmt"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

// StorageClient wraps a GCP storage client with OpenTelemetry tracing.
type StorageClient struct {
	Client *storage.Client
	Tracer trace.Tracer
}

// GetStorage creates a GCP storage client with the given options.
func (m *Manager) GetStorage(ctx context.Context, opts ...ClientOption) (*StorageClient, error) {
	cfg := buildConfig(opts)
	// storage clients are not project scoped
	key := clientKey{ServiceAccountEmail: cfg.ServiceAccountEmail}

	m.RLock()
	client, ok := m.storageClients[key]
	m.RUnlock()
	if ok {
		return client, nil
	}

	m.Lock()
	defer m.Unlock()

	// Double-check after acquiring write lock
	if client, ok = m.storageClients[key]; ok {
		return client, nil
	}

	clientOpts, err := m.clientOptions(ctx, cfg, storage.ScopeFullControl)
	if err != nil {
		return nil, err
	}

	storageClient, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCP storage client: %w", err)
	}

	client = &StorageClient{
		Client: storageClient,
		Tracer: m.tracer,
	}
	m.storageClients[key] = client

	return client, nil
}

// GetStorageForProfile creates a GCP storage client for a storage profile.
// The profile Role is the service account to impersonate.
func (m *Manager) GetStorageForProfile(ctx context.Context, p storageprofile.StorageProfile) (*StorageClient, error) {
	var opts []ClientOption
	if p.Role != "" {
		opts = append(opts, WithImpersonateServiceAccount(p.Role))
	}
	return m.GetStorage(ctx, opts...)
}
