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

package loader

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cardinalhq/strikeetl/internal/strikes"
)

// Row is one destination row. Nil fields load as NULL.
type Row struct {
	Date            *time.Time
	NumberOfStrikes *int64
	CenterPointGeom *string
	SourceURL       *string
	ETLTimestamp    *time.Time
}

// Coerce projects obj onto the destination schema. Columns outside the
// schema are dropped. Present values that fail conversion become nil and
// are counted in nulls by column.
func Coerce(obj map[string]any, nulls map[string]int) Row {
	var row Row
	for col, v := range obj {
		if v == nil {
			continue
		}
		ok := true
		switch col {
		case strikes.ColumnDate:
			row.Date, ok = coerceTimestamp(v)
		case strikes.ColumnETLTimestamp:
			row.ETLTimestamp, ok = coerceTimestamp(v)
		case strikes.ColumnNumberOfStrikes:
			row.NumberOfStrikes, ok = coerceInt(v)
		case strikes.ColumnCenterPointGeom:
			row.CenterPointGeom, ok = coerceString(v)
		case strikes.ColumnSourceURL:
			row.SourceURL, ok = coerceString(v)
		}
		if !ok {
			nulls[col]++
		}
	}
	return row
}

func coerceTimestamp(v any) (*time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	t, err := strikes.ParseTimestamp(s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func coerceInt(v any) (*int64, bool) {
	var s string
	switch tv := v.(type) {
	case json.Number:
		s = tv.String()
	case string:
		s = strings.TrimSpace(tv)
	default:
		return nil, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return nil, false
	}
	n := int64(f)
	return &n, true
}

func coerceString(v any) (*string, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	return &s, true
}

// bigQueryTimestampLayout is accepted by BigQuery JSON loads as a UTC
// TIMESTAMP.
const bigQueryTimestampLayout = "2006-01-02T15:04:05.000000Z"

// MarshalJSON renders the row as one newline-delimited JSON load line.
func (r Row) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		strikes.ColumnDate:            formatTime(r.Date),
		strikes.ColumnNumberOfStrikes: r.NumberOfStrikes,
		strikes.ColumnCenterPointGeom: r.CenterPointGeom,
		strikes.ColumnSourceURL:       r.SourceURL,
		strikes.ColumnETLTimestamp:    formatTime(r.ETLTimestamp),
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(bigQueryTimestampLayout)
	return &s
}

// EncodeNDJSON renders rows as newline-delimited JSON.
func EncodeNDJSON(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range rows {
		b, err := r.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
