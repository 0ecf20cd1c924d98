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
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/logctx"
	"github.com/cardinalhq/strikeetl/internal/strikes"
)

// Schema is the destination table layout.
var Schema = bigquery.Schema{
	{Name: strikes.ColumnDate, Type: bigquery.TimestampFieldType},
	{Name: strikes.ColumnNumberOfStrikes, Type: bigquery.IntegerFieldType},
	{Name: strikes.ColumnCenterPointGeom, Type: bigquery.GeographyFieldType},
	{Name: strikes.ColumnSourceURL, Type: bigquery.StringFieldType},
	{Name: strikes.ColumnETLTimestamp, Type: bigquery.TimestampFieldType},
}

// BigQueryDestination appends rows with one load job per call.
type BigQueryDestination struct {
	client *gcpclient.BigQueryClient
	table  gcpclient.TableID
}

var _ Destination = (*BigQueryDestination)(nil)

func NewBigQueryDestination(client *gcpclient.BigQueryClient, table gcpclient.TableID) *BigQueryDestination {
	return &BigQueryDestination{client: client, table: table}
}

func (d *BigQueryDestination) Append(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, span := d.client.Tracer.Start(ctx, "loader.bigqueryAppend",
		trace.WithAttributes(
			attribute.String("table", d.table.String()),
			attribute.Int("rows", len(rows)),
		),
	)
	defer span.End()

	body, err := EncodeNDJSON(rows)
	if err != nil {
		return err
	}

	src := bigquery.NewReaderSource(bytes.NewReader(body))
	src.SourceFormat = bigquery.JSON
	src.Schema = Schema

	l := d.client.Client.DatasetInProject(d.table.Project, d.table.Dataset).Table(d.table.Table).LoaderFrom(src)
	l.WriteDisposition = bigquery.WriteAppend
	l.CreateDisposition = bigquery.CreateIfNeeded
	l.JobID = "strikeetl_load_" + uuid.NewString()

	job, err := l.Run(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("starting load job into %s: %w", d.table.String(), err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("waiting for load job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("load job %s into %s failed: %w", job.ID(), d.table.String(), err)
	}

	logctx.FromContext(ctx).Debug("Load job complete",
		slog.String("job_id", job.ID()),
		slog.String("table", d.table.String()),
		slog.Int("rows", len(rows)))
	return nil
}
