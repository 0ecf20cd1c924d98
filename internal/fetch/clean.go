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
	"fmt"
	"math"
	"strings"

	"github.com/cardinalhq/strikeetl/internal/strikes"
)

// Dedupe removes records that are exact duplicates of an earlier one,
// keeping first occurrences in order.
func Dedupe(records []strikes.Record) []strikes.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]strikes.Record, 0, len(records))
	for _, r := range records {
		key := identity(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// identity renders every column and its typed value. Times are compared
// as instants.
func identity(r strikes.Record) string {
	norm := r.Normalized()
	var sb strings.Builder
	for _, col := range r.Columns() {
		fmt.Fprintf(&sb, "%q=%#v;", col, norm[col])
	}
	return sb.String()
}

// DropIncomplete removes records missing a value for any column present in
// the batch. Absent keys, nil and NaN all count as missing.
func DropIncomplete(records []strikes.Record) []strikes.Record {
	columns := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			columns[k] = struct{}{}
		}
	}

	out := make([]strikes.Record, 0, len(records))
	for _, r := range records {
		if complete(r, columns) {
			out = append(out, r)
		}
	}
	return out
}

func complete(r strikes.Record, columns map[string]struct{}) bool {
	for col := range columns {
		v, ok := r[col]
		if !ok || v == nil {
			return false
		}
		if f, isFloat := v.(float64); isFloat && math.IsNaN(f) {
			return false
		}
	}
	return true
}
