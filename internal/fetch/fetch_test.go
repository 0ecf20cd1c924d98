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

package fetch

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/strikeetl/internal/strikes"
)

type fakeSource struct {
	rows   []strikes.Record
	err    error
	sql    string
	params []bigquery.QueryParameter
	calls  int
}

func (f *fakeSource) Rows(_ context.Context, sql string, params []bigquery.QueryParameter) ([]strikes.Record, error) {
	f.calls++
	f.sql = sql
	f.params = params
	return f.rows, f.err
}

func strike(ts time.Time, n int64) strikes.Record {
	return strikes.Record{
		"date":              "2022-10-13",
		"number_of_strikes": n,
		"center_point_geom": "POINT(-80.1 25.7)",
		"source_url":        "gs://noaa/x",
		"etl_timestamp":     ts,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"two part", Config{SourceTable: "dataset.table", RowLimit: 1}, false},
		{"bare table", Config{SourceTable: "table", RowLimit: 1}, true},
		{"injection", Config{SourceTable: "a.b` OR 1=1 --", RowLimit: 1}, true},
		{"zero limit", Config{SourceTable: "a.b", RowLimit: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchQueryAndParams(t *testing.T) {
	src := &fakeSource{rows: []strikes.Record{strike(time.Date(2022, 10, 13, 1, 0, 0, 0, time.UTC), 3)}}
	f, err := NewFetcher(DefaultConfig(), src)
	require.NoError(t, err)

	loc := time.FixedZone("EST", -5*3600)
	w := Window{
		Start: time.Date(2022, 10, 12, 19, 0, 0, 695188000, loc),
		End:   time.Date(2022, 12, 12, 0, 0, 0, 0, time.UTC),
	}
	recs, err := f.Fetch(context.Background(), w)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t,
		"SELECT * FROM `bigquery-public-data.noaa_lightning.lightning_strikes` WHERE etl_timestamp BETWEEN @start_time AND @end_time ORDER BY etl_timestamp LIMIT 100",
		src.sql)
	require.Len(t, src.params, 2)
	assert.Equal(t, "start_time", src.params[0].Name)
	assert.Equal(t, time.Date(2022, 10, 13, 0, 0, 0, 695188000, time.UTC), src.params[0].Value)
	assert.Equal(t, "end_time", src.params[1].Name)
}

func TestFetchNoRows(t *testing.T) {
	f, err := NewFetcher(DefaultConfig(), &fakeSource{})
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), Window{})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestFetchAllRowsDropped(t *testing.T) {
	src := &fakeSource{rows: []strikes.Record{
		{"etl_timestamp": time.Now(), "source_url": nil},
	}}
	f, err := NewFetcher(DefaultConfig(), src)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), Window{})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestFetchQueryError(t *testing.T) {
	boom := errors.New("quota exceeded")
	f, err := NewFetcher(DefaultConfig(), &fakeSource{err: boom})
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), Window{})
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNoRows))
}

func TestFetchCleans(t *testing.T) {
	base := time.Date(2022, 10, 13, 0, 0, 1, 0, time.UTC)
	a := strike(base, 1)
	b := strike(base.Add(time.Second), 2)
	incomplete := strike(base.Add(2*time.Second), 3)
	delete(incomplete, "source_url")

	src := &fakeSource{rows: []strikes.Record{a, b, strike(base, 1), incomplete}}
	f, err := NewFetcher(DefaultConfig(), src)
	require.NoError(t, err)

	recs, err := f.Fetch(context.Background(), Window{})
	require.NoError(t, err)
	assert.Equal(t, []strikes.Record{a, b}, recs)
}

func TestDedupe(t *testing.T) {
	ts := time.Date(2022, 10, 13, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   []strikes.Record
		want []strikes.Record
	}{
		{"empty", nil, []strikes.Record{}},
		{"no duplicates", []strikes.Record{strike(ts, 1), strike(ts, 2)}, []strikes.Record{strike(ts, 1), strike(ts, 2)}},
		{"keeps first", []strikes.Record{strike(ts, 2), strike(ts, 1), strike(ts, 2)}, []strikes.Record{strike(ts, 2), strike(ts, 1)}},
		{"int and float differ", []strikes.Record{{"n": int64(1)}, {"n": float64(1)}}, []strikes.Record{{"n": int64(1)}, {"n": float64(1)}}},
		{
			"same instant in other zone",
			[]strikes.Record{strike(ts, 1), strike(ts.In(time.FixedZone("X", 3600)), 1)},
			[]strikes.Record{strike(ts, 1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDropIncomplete(t *testing.T) {
	ts := time.Date(2022, 10, 13, 0, 0, 0, 0, time.UTC)
	withNil := strike(ts, 1)
	withNil["center_point_geom"] = nil
	withNaN := strike(ts, 2)
	withNaN["number_of_strikes"] = math.NaN()
	extra := strike(ts, 3)
	extra["extra"] = "x"
	full := strike(ts, 4)

	got := DropIncomplete([]strikes.Record{withNil, withNaN, extra, full})
	// "extra" joins the column union, so every record without it is incomplete.
	assert.Equal(t, []strikes.Record{extra}, got)

	got = DropIncomplete([]strikes.Record{withNil, full})
	assert.Equal(t, []strikes.Record{full}, got)
}
