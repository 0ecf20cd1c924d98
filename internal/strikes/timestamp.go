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
	"errors"
	"strings"
	"time"
)

// TimestampLayout renders as "YYYY-MM-DD HH:MM:SS.ffffff UTC". "UTC" is
// literal text in a Go layout, so callers must convert to UTC first.
const TimestampLayout = "2006-01-02 15:04:05.000000 UTC"

var errUnparseableTimestamp = errors.New("unparseable timestamp")

// parse layouts tried in order, after the canonical one
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the canonical format plus the RFC 3339 and
// space-separated variants BigQuery and pandas emit. Values without a zone
// are UTC. The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparseableTimestamp
	}
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t.UTC(), nil
	}
	if base, ok := strings.CutSuffix(s, " UTC"); ok {
		s = base
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errUnparseableTimestamp
}

// MaxTimestamp returns the latest value of col across records.
func MaxTimestamp(records []Record, col string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, r := range records {
		t, ok := r.Timestamp(col)
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}
