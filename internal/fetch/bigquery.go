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
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/strikes"
)

// BigQuerySource runs queries at batch priority.
type BigQuerySource struct {
	client *gcpclient.BigQueryClient
}

func NewBigQuerySource(client *gcpclient.BigQueryClient) *BigQuerySource {
	return &BigQuerySource{client: client}
}

func (s *BigQuerySource) Rows(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]strikes.Record, error) {
	ctx, span := s.client.Tracer.Start(ctx, "fetch.bigqueryRows",
		trace.WithAttributes(attribute.String("sql", sql)))
	defer span.End()

	q := s.client.Client.Query(sql)
	q.Parameters = params
	q.Priority = bigquery.BatchPriority

	it, err := q.Read(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("running query: %w", err)
	}

	var out []strikes.Record
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("reading query results: %w", err)
		}
		rec := make(strikes.Record, len(row))
		for k, v := range row {
			rec[k] = v
		}
		out = append(out, rec)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}
