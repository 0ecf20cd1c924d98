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

// Package fetch pulls one bounded window of source rows and cleans them.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/cardinalhq/strikeetl/internal/logctx"
	"github.com/cardinalhq/strikeetl/internal/strikes"
)

// ErrNoRows is returned when a window yields no usable rows.
var ErrNoRows = errors.New("no rows in window")

// Window is an inclusive etl_timestamp range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Config controls the source query.
type Config struct {
	SourceTable string `mapstructure:"source_table"`
	RowLimit    int    `mapstructure:"row_limit"`
}

func DefaultConfig() Config {
	return Config{
		SourceTable: "bigquery-public-data.noaa_lightning.lightning_strikes",
		RowLimit:    100,
	}
}

var tableNameRE = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+){1,2}$`)

func (c Config) Validate() error {
	if !tableNameRE.MatchString(c.SourceTable) {
		return fmt.Errorf("invalid source table %q", c.SourceTable)
	}
	if c.RowLimit <= 0 {
		return fmt.Errorf("row limit must be positive, got %d", c.RowLimit)
	}
	return nil
}

// RowSource runs a parameterized query and returns every result row.
type RowSource interface {
	Rows(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]strikes.Record, error)
}

// Fetcher issues one windowed query per call.
type Fetcher struct {
	cfg    Config
	source RowSource
}

func NewFetcher(cfg Config, source RowSource) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fetcher{cfg: cfg, source: source}, nil
}

// Query returns the SQL text issued for every window.
func (f *Fetcher) Query() string {
	return fmt.Sprintf(
		"SELECT * FROM `%s` WHERE etl_timestamp BETWEEN @start_time AND @end_time ORDER BY etl_timestamp LIMIT %d",
		f.cfg.SourceTable, f.cfg.RowLimit)
}

// Fetch returns the cleaned rows whose etl_timestamp falls in w. The result
// never exceeds the row limit; a denser window is truncated.
func (f *Fetcher) Fetch(ctx context.Context, w Window) ([]strikes.Record, error) {
	ll := logctx.FromContext(ctx)
	params := []bigquery.QueryParameter{
		{Name: "start_time", Value: w.Start.UTC()},
		{Name: "end_time", Value: w.End.UTC()},
	}

	rows, err := f.source.Rows(ctx, f.Query(), params)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", f.cfg.SourceTable, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if len(rows) >= f.cfg.RowLimit {
		ll.Debug("Row limit reached, window truncated", slog.Int("rowLimit", f.cfg.RowLimit))
	}

	deduped := Dedupe(rows)
	clean := DropIncomplete(deduped)

	ll.Info("Fetched batch",
		slog.Int("fetched", len(rows)),
		slog.Int("duplicates", len(rows)-len(deduped)),
		slog.Int("incomplete", len(deduped)-len(clean)),
		slog.Int("records", len(clean)))

	if len(clean) == 0 {
		return nil, ErrNoRows
	}
	return clean, nil
}
