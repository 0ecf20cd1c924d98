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
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/strikeetl/config"
	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/ledger"
	"github.com/cardinalhq/strikeetl/internal/ledger/migrations"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the ledger backend",
		Long: `Apply the embedded schema migrations when the ledger backend is postgres,
or create the ledger table when the backend is bigquery and the table is missing.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCommand("strikeetl-migrate", migrateLedger)
		},
	}

	rootCmd.AddCommand(cmd)
}

func migrateLedger(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	lcfg := cfg.Load.Ledger
	if err := lcfg.Validate(); err != nil {
		return err
	}

	switch lcfg.Backend {
	case ledger.BackendPostgres:
		pool, err := ledger.OpenPostgres(ctx, lcfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		slog.Info("Running ledger migrations")
		if err := migrations.RunMigrationsUp(ctx, pool); err != nil {
			return fmt.Errorf("failed to migrate ledger: %w", err)
		}
		slog.Info("Ledger migrations completed successfully")
		return nil

	case ledger.BackendBigQuery:
		table, err := gcpclient.ParseTableID(lcfg.Table)
		if err != nil {
			return err
		}
		c, err := newClients(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		bq, err := c.bigQuery(ctx)
		if err != nil {
			return err
		}
		created, err := ledger.NewBigQueryStore(bq, table).EnsureTable(ctx)
		if err != nil {
			return err
		}
		slog.Info("Ledger table ready", slog.String("table", table.String()), slog.Bool("created", created))
		return nil
	}
	return fmt.Errorf("unknown ledger backend %q", lcfg.Backend)
}
