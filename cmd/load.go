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
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/strikeetl/config"
	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/healthcheck"
	"github.com/cardinalhq/strikeetl/internal/load"
	"github.com/cardinalhq/strikeetl/internal/loader"
)

func init() {
	var watch bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load new partition files into the destination table",
		RunE: func(_ *cobra.Command, _ []string) error {
			if watch {
				return runCommand("strikeetl-load", runLoadWatch)
			}
			return runCommand("strikeetl-load", runLoad)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Run a load pass for every extract notification on the configured subscription")

	rootCmd.AddCommand(cmd)
}

func runLoad(ctx context.Context, cfg *config.Config) (err error) {
	start := time.Now()
	defer func() { recordRun(ctx, "load", start, err) }()

	c, err := newClients(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	p, closeLedger, err := buildLoadPipeline(ctx, c, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	res, err := p.Run(ctx)
	logLoadResult(res)
	return err
}

func runLoadWatch(ctx context.Context, cfg *config.Config) error {
	if cfg.Load.Subscription == "" {
		return errors.New("load --watch requires load.subscription")
	}

	c, err := newClients(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	p, closeLedger, err := buildLoadPipeline(ctx, c, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	ps, err := c.pubSub(ctx)
	if err != nil {
		return err
	}

	health := healthcheck.NewServer(cfg.Load.HealthCheckPort)
	go func() {
		if err := health.Start(ctx); err != nil {
			slog.Error("Health check server stopped", slog.Any("error", err))
		}
	}()
	health.SetReady(true)
	defer health.SetReady(false)

	return load.NewTrigger(ps, cfg.Load.Subscription, &reportingRunner{p: p, health: health}).Run(ctx)
}

// reportingRunner records and logs each triggered pass like a one-shot run.
type reportingRunner struct {
	p      *load.Pipeline
	health *healthcheck.Server
}

func (r *reportingRunner) Run(ctx context.Context) (res load.Result, err error) {
	start := time.Now()
	defer func() {
		recordRun(ctx, "load", start, err)
		r.health.RecordRun(start, err)
	}()
	res, err = r.p.Run(ctx)
	logLoadResult(res)
	return res, err
}

func buildLoadPipeline(ctx context.Context, c *clients, cfg *config.Config) (*load.Pipeline, func(), error) {
	if err := cfg.Load.Validate(); err != nil {
		return nil, nil, err
	}
	table, err := gcpclient.ParseTableID(cfg.Load.DestinationTable)
	if err != nil {
		return nil, nil, err
	}

	objects, err := c.bucket(ctx, cfg.Load.Bucket)
	if err != nil {
		return nil, nil, err
	}
	bq, err := c.bigQuery(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := c.ledger(ctx, cfg.Load.Ledger)
	if err != nil {
		return nil, nil, err
	}

	p, err := load.NewPipeline(cfg.Load, objects, store,
		loader.New(objects, loader.NewBigQueryDestination(bq, table)))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return p, func() { _ = store.Close() }, nil
}

func logLoadResult(res load.Result) {
	slog.Info("Load run complete",
		slog.String("run_id", res.RunID),
		slog.Int("candidates", res.Candidates),
		slog.Int("loaded", len(res.Loaded)),
		slog.Int("rejected", len(res.Rejected)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("rows", res.Rows),
		slog.Int("coerced_nulls", res.CoercedNulls))
}
