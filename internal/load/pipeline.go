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

// Package load appends new partition objects to the destination table,
// using the ledger to skip objects already handled.
package load

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/strikeetl/internal/cloudstorage"
	"github.com/cardinalhq/strikeetl/internal/idgen"
	"github.com/cardinalhq/strikeetl/internal/ledger"
	"github.com/cardinalhq/strikeetl/internal/loader"
	"github.com/cardinalhq/strikeetl/internal/logctx"
)

const candidateSuffix = ".json"

// ErrRunAborted wraps failures that stop a run before any file is loaded.
var ErrRunAborted = errors.New("load run aborted")

type RecordLoader interface {
	Load(ctx context.Context, bucket, key string) (loader.Result, error)
}

// Result summarizes one run.
type Result struct {
	RunID        string
	Candidates   int
	Loaded       []string
	Rejected     []string
	Failed       []string
	Rows         int
	CoercedNulls int
}

type Pipeline struct {
	cfg    Config
	lister cloudstorage.Client
	ledger ledger.Store
	loader RecordLoader
}

func NewPipeline(cfg Config, lister cloudstorage.Client, store ledger.Store, rl RecordLoader) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid load config: %w", err)
	}
	return &Pipeline{cfg: cfg, lister: lister, ledger: store, loader: rl}, nil
}

// Candidates lists the .json objects under the configured prefix in
// listing order.
func (p *Pipeline) Candidates(ctx context.Context) ([]string, error) {
	objects, err := p.lister.ListObjects(ctx, p.cfg.Bucket, p.cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", ErrRunAborted, p.cfg.Bucket, err)
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		if strings.HasSuffix(o.Key, candidateSuffix) {
			keys = append(keys, o.Key)
		}
	}
	return keys, nil
}

// Run loads every unprocessed candidate. A listing or ledger read failure
// aborts before anything is loaded. Per-file failures are collected into
// the returned error while the remaining files are still processed.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: idgen.NextRunID()}
	ctx, ll := logctx.WithAttrs(ctx, slog.String("run_id", res.RunID), slog.String("stage", "load"))
	ll.Info("Starting file processing job", slog.String("bucket", p.cfg.Bucket))

	candidates, err := p.Candidates(ctx)
	if err != nil {
		ll.Error("Error listing files", slog.Any("error", err))
		return res, err
	}
	res.Candidates = len(candidates)
	ll.Info("Found JSON files", slog.Int("count", len(candidates)))

	processed, err := p.ledger.Processed(ctx)
	if err != nil {
		ll.Error("Error fetching processed files, aborting", slog.Any("error", err))
		return res, fmt.Errorf("%w: reading ledger: %w", ErrRunAborted, err)
	}
	ll.Info("Retrieved processed files", slog.Int("count", processed.Cardinality()))

	pending := ledger.Diff(candidates, processed)
	if len(pending) == 0 {
		ll.Info("No new files to process")
		return res, nil
	}

	var merr *multierror.Error
	for _, key := range pending {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, err)
			break
		}
		if err := p.processFile(ctx, key, &res); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	ll.Info("File processing finished",
		slog.Int("loaded", len(res.Loaded)),
		slog.Int("rejected", len(res.Rejected)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("rows", res.Rows),
		slog.Int("coerced_nulls", res.CoercedNulls))
	return res, merr.ErrorOrNil()
}

// processFile loads one file and records it in the ledger. The ledger is
// written only after a successful load, or after a parse failure when
// quarantine is enabled.
func (p *Pipeline) processFile(ctx context.Context, key string, res *Result) error {
	ctx, ll := logctx.WithAttrs(ctx, slog.String("file", key))

	lr, err := p.loader.Load(ctx, p.cfg.Bucket, key)
	if err != nil {
		if errors.Is(err, loader.ErrUnparseable) && p.cfg.QuarantineUnparseable {
			ll.Error("Invalid JSON format, quarantining file", slog.Any("error", err))
			if merr := p.ledger.Mark(ctx, key, ledger.StatusRejected); merr != nil {
				ll.Error("Error marking file as rejected", slog.Any("error", merr))
				res.Failed = append(res.Failed, key)
				fileCounter.Add(ctx, 1, outcomeAttr("failed"))
				return errors.Join(err, merr)
			}
			res.Rejected = append(res.Rejected, key)
			fileCounter.Add(ctx, 1, outcomeAttr("rejected"))
			return nil
		}
		ll.Error("Error processing file", slog.Any("error", err))
		res.Failed = append(res.Failed, key)
		fileCounter.Add(ctx, 1, outcomeAttr("failed"))
		return err
	}

	res.Rows += lr.Rows
	res.CoercedNulls += lr.TotalCoercedNulls()
	rowCounter.Add(ctx, int64(lr.Rows))
	if n := lr.TotalCoercedNulls(); n > 0 {
		ll.Info("Coerced unparseable values to NULL", slog.Any("columns", lr.CoercedNulls), slog.Int("total", n))
	}
	ll.Info("Successfully loaded rows", slog.Int("rows", lr.Rows))

	if err := p.ledger.Mark(ctx, key, ledger.StatusLoaded); err != nil {
		// Loaded but unmarked: the next run will append this file again.
		ll.Error("Error marking file as processed", slog.Any("error", err))
		res.Failed = append(res.Failed, key)
		fileCounter.Add(ctx, 1, outcomeAttr("mark_failed"))
		return fmt.Errorf("marking %s: %w", key, err)
	}
	ll.Info("Marked file as processed")
	res.Loaded = append(res.Loaded, key)
	fileCounter.Add(ctx, 1, outcomeAttr("loaded"))
	return nil
}
