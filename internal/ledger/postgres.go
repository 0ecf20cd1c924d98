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

package ledger

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/strikeetl/internal/dbopen"
	"github.com/cardinalhq/strikeetl/internal/ledger/migrations"
)

// DatabaseEnvPrefix names the environment variables read when no
// database_url is configured.
const DatabaseEnvPrefix = "STRIKEETL_LEDGERDB"

const (
	selectProcessedSQL = `SELECT file_name FROM processed_files`
	insertProcessedSQL = `INSERT INTO processed_files (file_name, status, processed_at)
VALUES ($1, $2, now())
ON CONFLICT (file_name) DO NOTHING`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres opens the ledger database and verifies its schema is
// current.
func ConnectPostgres(ctx context.Context, cfg Config) (*PostgresStore, error) {
	pool, err := OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := migrations.CheckVersion(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresStore(pool), nil
}

// OpenPostgres opens the ledger database without a schema check.
func OpenPostgres(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connString, err := dbopen.DatabaseURL(cfg.DatabaseURL, DatabaseEnvPrefix)
	if err != nil {
		return nil, fmt.Errorf("ledger database: %w", err)
	}
	return dbopen.Open(ctx, connString, "ledger")
}

func (s *PostgresStore) Processed(ctx context.Context) (mapset.Set[string], error) {
	rows, err := s.pool.Query(ctx, selectProcessedSQL)
	if err != nil {
		return nil, fmt.Errorf("querying processed files: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("reading processed files: %w", err)
	}
	return mapset.NewSet(names...), nil
}

func (s *PostgresStore) Mark(ctx context.Context, fileName string, status Status) error {
	if _, err := s.pool.Exec(ctx, insertProcessedSQL, fileName, string(status)); err != nil {
		return fmt.Errorf("marking %s as %s: %w", fileName, status, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
