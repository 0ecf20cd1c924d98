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
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	mapset "github.com/deckarep/golang-set/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
)

// Schema is the BigQuery ledger table layout. Tables holding only
// file_name are read the same way.
var Schema = bigquery.Schema{
	{Name: "file_name", Type: bigquery.StringFieldType, Required: true},
	{Name: "status", Type: bigquery.StringFieldType},
	{Name: "processed_at", Type: bigquery.TimestampFieldType},
}

type bigqueryRow struct {
	FileName    string    `bigquery:"file_name"`
	Status      string    `bigquery:"status"`
	ProcessedAt time.Time `bigquery:"processed_at"`
}

// BigQueryStore reads the ledger with a query and appends with streaming
// inserts.
type BigQueryStore struct {
	client *gcpclient.BigQueryClient
	table  gcpclient.TableID
	now    func() time.Time
}

var _ Store = (*BigQueryStore)(nil)

func NewBigQueryStore(client *gcpclient.BigQueryClient, table gcpclient.TableID) *BigQueryStore {
	return &BigQueryStore{client: client, table: table, now: time.Now}
}

func (s *BigQueryStore) handle() *bigquery.Table {
	return s.client.Client.DatasetInProject(s.table.Project, s.table.Dataset).Table(s.table.Table)
}

// EnsureTable creates the ledger table when it does not exist, and adds
// status and processed_at to a table that only holds file_name. It reports
// whether the table changed.
func (s *BigQueryStore) EnsureTable(ctx context.Context) (bool, error) {
	t := s.handle()
	md, err := t.Metadata(ctx)
	switch {
	case err == nil:
		return s.upgrade(ctx, t, md)
	case !isNotFound(err):
		return false, fmt.Errorf("reading %s metadata: %w", s.table, err)
	}
	if err := t.Create(ctx, &bigquery.TableMetadata{Schema: Schema}); err != nil {
		return false, fmt.Errorf("creating %s: %w", s.table, err)
	}
	return true, nil
}

func (s *BigQueryStore) upgrade(ctx context.Context, t *bigquery.Table, md *bigquery.TableMetadata) (bool, error) {
	missing := missingColumns(md.Schema)
	if len(missing) == 0 {
		return false, nil
	}
	update := bigquery.TableMetadataToUpdate{Schema: append(slices.Clone(md.Schema), missing...)}
	if _, err := t.Update(ctx, update, md.ETag); err != nil {
		return false, fmt.Errorf("adding ledger columns to %s: %w", s.table, err)
	}
	return true, nil
}

// missingColumns returns the ledger columns absent from existing, as
// NULLABLE fields so they can be appended to a populated table.
func missingColumns(existing bigquery.Schema) bigquery.Schema {
	have := make(map[string]bool, len(existing))
	for _, f := range existing {
		have[strings.ToLower(f.Name)] = true
	}
	var missing bigquery.Schema
	for _, f := range Schema {
		if have[f.Name] {
			continue
		}
		col := *f
		col.Required = false
		missing = append(missing, &col)
	}
	return missing
}

func (s *BigQueryStore) Processed(ctx context.Context) (mapset.Set[string], error) {
	ctx, span := s.client.Tracer.Start(ctx, "ledger.bigqueryProcessed")
	defer span.End()

	q := s.client.Client.Query(fmt.Sprintf("SELECT file_name FROM `%s`", s.table))
	it, err := q.Read(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("querying ledger %s: %w", s.table, err)
	}

	processed := mapset.NewSet[string]()
	for {
		var row struct {
			FileName bigquery.NullString `bigquery:"file_name"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("reading ledger %s: %w", s.table, err)
		}
		if row.FileName.Valid {
			processed.Add(row.FileName.StringVal)
		}
	}
	return processed, nil
}

func (s *BigQueryStore) Mark(ctx context.Context, fileName string, status Status) error {
	ctx, span := s.client.Tracer.Start(ctx, "ledger.bigqueryMark")
	defer span.End()

	if err := s.inserter().Put(ctx, s.entry(fileName, status)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("inserting %s into ledger %s: %w", fileName, s.table, err)
	}
	return nil
}

// inserter drops columns the table lacks, so a file_name-only ledger
// still records entries until EnsureTable upgrades it.
func (s *BigQueryStore) inserter() *bigquery.Inserter {
	ins := s.handle().Inserter()
	ins.IgnoreUnknownValues = true
	return ins
}

func (s *BigQueryStore) entry(fileName string, status Status) *bigquery.StructSaver {
	return &bigquery.StructSaver{
		Schema:   Schema,
		InsertID: fileName,
		Struct: bigqueryRow{
			FileName:    fileName,
			Status:      string(status),
			ProcessedAt: s.now().UTC(),
		},
	}
}

// Close is a no-op; the BigQuery client is owned by the caller.
func (s *BigQueryStore) Close() error { return nil }

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
