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

package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/strikeetl/config"
	"github.com/cardinalhq/strikeetl/internal/ledger"
	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

func TestSubcommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"extract", "load", "migrate"})
}

func newTestClients(t *testing.T) *clients {
	t.Helper()
	cfg := &config.Config{
		GCP: config.GCPConfig{ProjectID: "test-project", ImpersonateServiceAccount: "etl@test-project.iam.gserviceaccount.com"},
		Storage: config.StorageConfig{
			Default: storageprofile.StorageProfile{CloudProvider: storageprofile.ProviderFile, BasePath: t.TempDir()},
		},
	}
	c, err := newClients(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestClientsGCPOptions(t *testing.T) {
	c := newTestClients(t)
	assert.Len(t, c.gcpOptions(), 2)

	c.cfg.GCP.ImpersonateServiceAccount = ""
	assert.Len(t, c.gcpOptions(), 1)
}

func TestClientsFileBucket(t *testing.T) {
	ctx := context.Background()
	c := newTestClients(t)

	client, err := c.bucket(ctx, "data")
	require.NoError(t, err)
	require.NoError(t, client.PutObject(ctx, "data", "f/partition_0.json", "application/json", []byte(`[]`)))

	objects, err := client.ListObjects(ctx, "data", "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "f/partition_0.json", objects[0].Key)
}

func TestClientsLedgerBackend(t *testing.T) {
	c := newTestClients(t)
	_, err := c.ledger(context.Background(), ledger.Config{Backend: "sqlite"})
	assert.Error(t, err)

	_, err = c.ledger(context.Background(), ledger.Config{Backend: ledger.BackendBigQuery, Table: "missing-dataset"})
	assert.Error(t, err)
}
