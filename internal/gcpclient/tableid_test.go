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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableID(t *testing.T) {
	id, err := ParseTableID("luminous-wharf-450412-p2.Assignment.metadata_table")
	require.NoError(t, err)
	assert.Equal(t, TableID{Project: "luminous-wharf-450412-p2", Dataset: "Assignment", Table: "metadata_table"}, id)
	assert.Equal(t, "luminous-wharf-450412-p2.Assignment.metadata_table", id.String())

	for _, bad := range []string{"", "a.b", "a.b.c.d", "a.b`.c", "a..c"} {
		_, err := ParseTableID(bad)
		assert.Error(t, err, bad)
	}
}
