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
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/strikeetl/config"
	"github.com/cardinalhq/strikeetl/internal/extract"
	"github.com/cardinalhq/strikeetl/internal/fetch"
	"github.com/cardinalhq/strikeetl/internal/partition"
	"github.com/cardinalhq/strikeetl/internal/strikes"
	"github.com/cardinalhq/strikeetl/internal/watermark"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the next window of strikes into object storage",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCommand("strikeetl-extract", runExtract)
		},
	}

	rootCmd.AddCommand(cmd)
}

func runExtract(ctx context.Context, cfg *config.Config) (err error) {
	start := time.Now()
	defer func() { recordRun(ctx, "extract", start, err) }()

	c, err := newClients(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	p, stop, err := buildExtractPipeline(ctx, c, cfg.Extract)
	if err != nil {
		return err
	}
	defer stop()

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("Extract run complete",
		slog.String("run_id", res.RunID),
		slog.Int("records", res.Records),
		slog.Int("partitions", len(res.Objects)),
		slog.Bool("watermark_advanced", res.Advanced),
		slog.String("watermark", strikes.FormatTimestamp(res.Watermark)))
	return nil
}

func buildExtractPipeline(ctx context.Context, c *clients, cfg extract.Config) (*extract.Pipeline, func(), error) {
	stop := func() {}

	dataClient, err := c.bucket(ctx, cfg.DataBucket)
	if err != nil {
		return nil, stop, err
	}
	metaClient, err := c.bucket(ctx, cfg.MetadataBucket)
	if err != nil {
		return nil, stop, err
	}
	bq, err := c.bigQuery(ctx)
	if err != nil {
		return nil, stop, err
	}
	fetcher, err := fetch.NewFetcher(cfg.Fetch, fetch.NewBigQuerySource(bq))
	if err != nil {
		return nil, stop, err
	}

	var notifier extract.Notifier
	if cfg.NotifyTopic != "" {
		ps, err := c.pubSub(ctx)
		if err != nil {
			return nil, stop, err
		}
		n := extract.NewPubSubNotifier(ps, cfg.NotifyTopic)
		notifier = n
		stop = n.Stop
	}

	p, err := extract.NewPipeline(cfg,
		watermark.NewStore(metaClient, cfg.MetadataBucket, cfg.WatermarkKey),
		fetcher,
		partition.NewWriter(dataClient, cfg.DataBucket),
		notifier,
	)
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	return p, stop, nil
}
