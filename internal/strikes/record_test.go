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

package strikes

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2022, 10, 13, 0, 0, 0, 695188000, time.UTC)
	assert.Equal(t, "2022-10-13 00:00:00.695188 UTC", FormatTimestamp(ts))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2022-10-13 05:00:00.000000 UTC", FormatTimestamp(time.Date(2022, 10, 13, 0, 0, 0, 0, est)))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2022, 10, 13, 4, 5, 6, 695188000, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2022-10-13 04:05:06.695188 UTC", want},
		{"2022-10-13T04:05:06.695188Z", want},
		{"2022-10-13T06:05:06.695188+02:00", want},
		{"2022-10-13 04:05:06.695188+00:00", want},
		{"2022-10-13 04:05:06.695188", want},
		{"  2022-10-13 04:05:06.695188 UTC ", want},
		{"2022-10-13 04:05:06 UTC", time.Date(2022, 10, 13, 4, 5, 6, 0, time.UTC)},
		{"2022-10-13", time.Date(2022, 10, 13, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"", "yesterday", "2022-13-45", "12:00"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	ts := time.Date(2023, 1, 2, 3, 4, 5, 123456000, time.UTC)
	got, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestEncode(t *testing.T) {
	r := Record{
		ColumnSourceURL:       "https://example.com/a?b=1&c=<2>",
		ColumnNumberOfStrikes: int64(7),
		ColumnETLTimestamp:    time.Date(2022, 10, 13, 0, 0, 0, 695188000, time.UTC),
		ColumnCenterPointGeom: "POINT(-84.1 29.5)",
	}
	b, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"center_point_geom":"POINT(-84.1 29.5)","etl_timestamp":"2022-10-13 00:00:00.695188 UTC","number_of_strikes":7,"source_url":"https://example.com/a?b=1&c=<2>"}`,
		string(b))

	// same content, same bytes
	b2, err := Encode(Record{
		ColumnCenterPointGeom: "POINT(-84.1 29.5)",
		ColumnETLTimestamp:    time.Date(2022, 10, 13, 0, 0, 0, 695188000, time.UTC),
		ColumnNumberOfStrikes: int64(7),
		ColumnSourceURL:       "https://example.com/a?b=1&c=<2>",
	})
	require.NoError(t, err)
	assert.Equal(t, b, b2)
}

func TestRecordTimestamp(t *testing.T) {
	ts := time.Date(2022, 10, 13, 0, 0, 0, 0, time.UTC)
	r := Record{"a": ts, "b": "2022-10-13 00:00:00.000000 UTC", "c": 12, "d": (*time.Time)(nil)}

	got, ok := r.Timestamp("a")
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))

	got, ok = r.Timestamp("b")
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))

	for _, col := range []string{"c", "d", "missing"} {
		_, ok = r.Timestamp(col)
		assert.False(t, ok, col)
	}
}

func TestMaxTimestamp(t *testing.T) {
	t1 := time.Date(2022, 10, 13, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	records := []Record{
		{ColumnETLTimestamp: t2},
		{ColumnETLTimestamp: t1},
		{ColumnETLTimestamp: nil},
	}
	got, ok := MaxTimestamp(records, ColumnETLTimestamp)
	require.True(t, ok)
	assert.True(t, t2.Equal(got))

	_, ok = MaxTimestamp(nil, ColumnETLTimestamp)
	assert.False(t, ok)
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Record{"c": 1, "a": 2, "b": 3}.Columns())
}

func TestEncodeCivilValues(t *testing.T) {
	dt := civil.DateTimeOf(time.Date(2022, 10, 13, 1, 2, 3, 4000, time.UTC))
	r := Record{
		"date": civil.Date{Year: 2022, Month: time.October, Day: 13},
		"dt":   dt,
	}
	b, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2022-10-13","dt":"2022-10-13 01:02:03.000004 UTC"}`, string(b))

	ts, ok := r.Timestamp("dt")
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2022, 10, 13, 1, 2, 3, 4000, time.UTC)))
}
