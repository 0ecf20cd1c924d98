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

// Package ledger records which storage objects have been loaded, so each
// object is appended to the destination table at most once.
package ledger

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
)

// Status is the outcome recorded for a file.
type Status string

const (
	StatusLoaded   Status = "loaded"
	StatusRejected Status = "rejected"
)

// Store is the processed-files ledger. Any entry, whatever its status,
// means the file must not be loaded again.
type Store interface {
	Processed(ctx context.Context) (mapset.Set[string], error)
	Mark(ctx context.Context, fileName string, status Status) error
	Close() error
}

const (
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend string `mapstructure:"backend"`
	// Table is the fully qualified project.dataset.table for the BigQuery
	// backend.
	Table string `mapstructure:"table"`
	// DatabaseURL is the Postgres connection string. When empty it is read
	// from STRIKEETL_LEDGERDB_* variables.
	DatabaseURL string `mapstructure:"database_url"`
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendBigQuery,
		Table:   "luminous-wharf-450412-p2.Assignment.metadata_table",
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendBigQuery:
		_, err := gcpclient.ParseTableID(c.Table)
		return err
	case BackendPostgres:
		return nil
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Backend)
	}
}

// Diff returns the candidates not in processed, in candidate order, with
// repeated candidates collapsed to their first occurrence.
func Diff(candidates []string, processed mapset.Set[string]) []string {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if processed.Contains(c) || !seen.Add(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
