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

package ledger

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"google.golang.org/api/option"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
)

func newTestBigQueryStore(t *testing.T) *BigQueryStore {
	t.Helper()
	bq, err := bigquery.NewClient(context.Background(), "test-project", option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bq.Close() })

	s := NewBigQueryStore(&gcpclient.BigQueryClient{Client: bq, Tracer: otel.Tracer("test")},
		gcpclient.TableID{Project: "test-project", Dataset: "Assignment", Table: "metadata_table"})
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)) }
	return s
}

func TestBigQueryEntry(t *testing.T) {
	s := newTestBigQueryStore(t)

	row, insertID, err := s.entry("f/partition_0.json", StatusRejected).Save()
	require.NoError(t, err)
	assert.Equal(t, "f/partition_0.json", insertID)
	assert.Equal(t, "f/partition_0.json", row["file_name"])
	assert.Equal(t, "rejected", row["status"])
	ts, ok := row["processed_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, ts.Location())
}

func TestBigQueryInserterToleratesFileNameOnlyTable(t *testing.T) {
	s := newTestBigQueryStore(t)
	assert.True(t, s.inserter().IgnoreUnknownValues)
}

func TestMissingColumns(t *testing.T) {
	legacy := bigquery.Schema{{Name: "file_name", Type: bigquery.StringFieldType}}
	missing := missingColumns(legacy)
	require.Len(t, missing, 2)
	assert.Equal(t, "status", missing[0].Name)
	assert.Equal(t, "processed_at", missing[1].Name)
	for _, f := range missing {
		assert.False(t, f.Required, f.Name)
	}
	assert.Empty(t, missingColumns(Schema))

	upper := bigquery.Schema{
		{Name: "FILE_NAME", Type: bigquery.StringFieldType},
		{Name: "Status", Type: bigquery.StringFieldType},
	}
	missing = missingColumns(upper)
	require.Len(t, missing, 1)
	assert.Equal(t, "processed_at", missing[0].Name)

	assert.True(t, Schema[0].Required, "package schema must not be modified")
}
