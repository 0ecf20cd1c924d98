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

package gcpclient

import (
	"fmt"
	"regexp"
	"strings"
)

// TableID names a BigQuery table.
type TableID struct {
	Project string
	Dataset string
	Table   string
}

var tablePartRE = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// ParseTableID parses "project.dataset.table".
func ParseTableID(s string) (TableID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return TableID{}, fmt.Errorf("table %q must be project.dataset.table", s)
	}
	for _, p := range parts {
		if !tablePartRE.MatchString(p) {
			return TableID{}, fmt.Errorf("table %q has invalid component %q", s, p)
		}
	}
	return TableID{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}

func (t TableID) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}
