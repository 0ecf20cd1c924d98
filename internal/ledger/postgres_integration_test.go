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

//go:build integration

package ledger

import (
	"context"
	"fmt"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/orlangure/gnomock"
	"github.com/orlangure/gnomock/preset/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/strikeetl/internal/ledger/migrations"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	container, err := gnomock.Start(postgres.Preset(
		postgres.WithUser("etl", "etl"),
		postgres.WithDatabase("ledger"),
	))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gnomock.Stop(container) })

	cfg := Config{
		Backend:     BackendPostgres,
		DatabaseURL: fmt.Sprintf("postgres://etl:etl@%s/ledger?sslmode=disable", container.DefaultAddress()),
	}

	pool, err := OpenPostgres(ctx, cfg)
	require.NoError(t, err)
	require.ErrorIs(t, migrations.CheckVersion(ctx, pool), migrations.ErrNotMigrated)
	require.NoError(t, migrations.RunMigrationsUp(ctx, pool))
	require.NoError(t, migrations.RunMigrationsUp(ctx, pool))
	pool.Close()

	store, err := ConnectPostgres(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	processed, err := store.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed.Cardinality())

	require.NoError(t, store.Mark(ctx, "a.json", StatusLoaded))
	require.NoError(t, store.Mark(ctx, "bad.json", StatusRejected))
	require.NoError(t, store.Mark(ctx, "a.json", StatusLoaded))

	processed, err = store.Processed(ctx)
	require.NoError(t, err)
	assert.True(t, processed.Equal(mapset.NewSet("a.json", "bad.json")))

	assert.Equal(t, []string{"b.json"}, Diff([]string{"a.json", "b.json", "bad.json"}, processed))
}
