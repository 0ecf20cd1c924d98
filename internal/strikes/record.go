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

// Package strikes holds the row model shared by the extract and load
// stages: column names, the canonical timestamp text format, and the
// canonical JSON encoding used for sizing and writing partitions.
package strikes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// Column names the pipelines rely on.
const (
	ColumnDate            = "date"
	ColumnNumberOfStrikes = "number_of_strikes"
	ColumnCenterPointGeom = "center_point_geom"
	ColumnSourceURL       = "source_url"
	ColumnETLTimestamp    = "etl_timestamp"
)

// Record is one source row keyed by column name. A missing key and a nil
// value both mean the field is absent.
type Record map[string]any

// Columns returns the record's column names in sorted order.
func (r Record) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Timestamp returns the named column as a time, accepting time.Time values
// and strings in any layout ParseTimestamp understands.
func (r Record) Timestamp(col string) (time.Time, bool) {
	switch v := r[col].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case civil.DateTime:
		return v.In(time.UTC), true
	case string:
		t, err := ParseTimestamp(v)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// Normalized returns a copy of r with every time value replaced by its
// canonical string form. DATETIME values are taken as UTC; DATE values
// keep their YYYY-MM-DD form.
func (r Record) Normalized() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch tv := v.(type) {
		case time.Time:
			out[k] = FormatTimestamp(tv)
		case *time.Time:
			if tv == nil {
				out[k] = nil
			} else {
				out[k] = FormatTimestamp(*tv)
			}
		case civil.DateTime:
			out[k] = FormatTimestamp(tv.In(time.UTC))
		default:
			out[k] = v
		}
	}
	return out
}

// Encode returns the canonical UTF-8 JSON encoding of r: timestamps
// normalized, keys sorted, no HTML escaping, no trailing newline.
func Encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Normalized()); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
