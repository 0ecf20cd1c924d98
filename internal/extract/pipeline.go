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

// Package extract runs one incremental extract: read the watermark, fetch
// the next window, partition it into object storage, advance the watermark.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardinalhq/strikeetl/internal/fetch"
	"github.com/cardinalhq/strikeetl/internal/idgen"
	"github.com/cardinalhq/strikeetl/internal/logctx"
	"github.com/cardinalhq/strikeetl/internal/partition"
	"github.com/cardinalhq/strikeetl/internal/strikes"
	"github.com/cardinalhq/strikeetl/internal/watermark"
)

// ErrWatermarkRegression is returned when a batch's newest etl_timestamp is
// older than the stored watermark.
var ErrWatermarkRegression = errors.New("watermark would move backwards")

type WatermarkStore interface {
	Load(ctx context.Context) (time.Time, error)
	Save(ctx context.Context, ts time.Time) error
	Location() string
}

type Fetcher interface {
	Fetch(ctx context.Context, w fetch.Window) ([]strikes.Record, error)
}

type PartitionWriter interface {
	Write(ctx context.Context, folder string, parts []partition.Partition) ([]string, error)
}

// Result summarizes one run.
type Result struct {
	RunID     string
	Window    fetch.Window
	Records   int
	Folder    string
	Objects   []string
	Watermark time.Time
	// Advanced reports whether the watermark was rewritten.
	Advanced bool
}

type Pipeline struct {
	cfg          Config
	defaultStart time.Time
	watermark    WatermarkStore
	fetcher      Fetcher
	writer       PartitionWriter
	notifier     Notifier
}

// NewPipeline wires a pipeline. notifier may be nil.
func NewPipeline(cfg Config, wm WatermarkStore, f Fetcher, w PartitionWriter, notifier Notifier) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extract config: %w", err)
	}
	start, err := cfg.DefaultStartTime()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:          cfg,
		defaultStart: start,
		watermark:    wm,
		fetcher:      f,
		writer:       w,
		notifier:     notifier,
	}, nil
}

// NextWindow derives the query window from the stored watermark. A zero
// previous watermark means no prior run.
func (p *Pipeline) NextWindow(previous time.Time) fetch.Window {
	start := p.defaultStart
	if !previous.IsZero() {
		start = previous.Add(p.cfg.Step)
	}
	return fetch.Window{Start: start, End: start.Add(p.cfg.Window)}
}

func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: idgen.NextRunID()}
	ctx, ll := logctx.WithAttrs(ctx, slog.String("run_id", res.RunID), slog.String("stage", "extract"))

	previous := p.loadWatermark(ctx)
	res.Watermark = previous
	res.Window = p.NextWindow(previous)
	ll.Info("Starting extract",
		slog.String("start", strikes.FormatTimestamp(res.Window.Start)),
		slog.String("end", strikes.FormatTimestamp(res.Window.End)))

	records, err := p.fetcher.Fetch(ctx, res.Window)
	if errors.Is(err, fetch.ErrNoRows) {
		ll.Info("No new data received in window")
		runCounter.Add(ctx, 1, outcomeAttr("empty"))
		return res, nil
	}
	if err != nil {
		ll.Error("Failed to fetch batch", slog.Any("error", err))
		runCounter.Add(ctx, 1, outcomeAttr("fetch_error"))
		return res, err
	}
	res.Records = len(records)
	recordCounter.Add(ctx, int64(len(records)))

	latest, ok := strikes.MaxTimestamp(records, strikes.ColumnETLTimestamp)
	if !ok {
		runCounter.Add(ctx, 1, outcomeAttr("invalid_batch"))
		return res, fmt.Errorf("batch of %d records has no readable %s", len(records), strikes.ColumnETLTimestamp)
	}
	latest = latest.UTC()
	if !previous.IsZero() && latest.Before(previous) {
		runCounter.Add(ctx, 1, outcomeAttr("invalid_batch"))
		return res, fmt.Errorf("%w: batch max %s, stored %s", ErrWatermarkRegression,
			strikes.FormatTimestamp(latest), strikes.FormatTimestamp(previous))
	}
	res.Folder = strikes.FormatTimestamp(latest)

	parts, err := partition.Plan(records, p.cfg.PartitionMaxBytes)
	if err != nil {
		runCounter.Add(ctx, 1, outcomeAttr("partition_error"))
		return res, fmt.Errorf("planning partitions: %w", err)
	}
	ll.Info("Partitioning records", slog.Int("records", len(records)), slog.Int("partitions", len(parts)))

	res.Objects, err = p.writer.Write(ctx, res.Folder, parts)
	partitionCounter.Add(ctx, int64(len(res.Objects)))
	if err != nil {
		ll.Error("Failed to upload partitions, watermark not advanced",
			slog.Int("written", len(res.Objects)), slog.Any("error", err))
		runCounter.Add(ctx, 1, outcomeAttr("upload_error"))
		return res, err
	}
	if err := ctx.Err(); err != nil {
		runCounter.Add(ctx, 1, outcomeAttr("cancelled"))
		return res, err
	}

	if err := p.watermark.Save(ctx, latest); err != nil {
		ll.Error("Failed to save watermark", slog.String("location", p.watermark.Location()), slog.Any("error", err))
		runCounter.Add(ctx, 1, outcomeAttr("watermark_error"))
		return res, err
	}
	res.Watermark = latest
	res.Advanced = true
	ll.Info("Updated watermark", slog.String("location", p.watermark.Location()), slog.String("latest_etl_timestamp", res.Folder))

	p.notify(ctx, res)
	runCounter.Add(ctx, 1, outcomeAttr("success"))
	return res, nil
}

// loadWatermark returns the stored watermark, or zero when none can be read.
func (p *Pipeline) loadWatermark(ctx context.Context) time.Time {
	ll := logctx.FromContext(ctx)
	ts, err := p.watermark.Load(ctx)
	switch {
	case err == nil:
		return ts
	case errors.Is(err, watermark.ErrNotFound):
		ll.Info("No watermark found, starting from default",
			slog.String("location", p.watermark.Location()),
			slog.String("default_start", strikes.FormatTimestamp(p.defaultStart)))
	default:
		ll.Error("Error reading watermark, starting from default",
			slog.String("location", p.watermark.Location()),
			slog.Any("error", err))
	}
	return time.Time{}
}

// notify failures are logged only; the watermark has already moved.
func (p *Pipeline) notify(ctx context.Context, res Result) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.Notify(ctx, Notification{
		Folder:             res.Folder,
		Objects:            res.Objects,
		LatestETLTimestamp: res.Folder,
	})
	if err != nil {
		logctx.FromContext(ctx).Error("Failed to publish extract notification", slog.Any("error", err))
	}
}
