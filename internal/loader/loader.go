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

// Package loader turns one partition object into rows of the destination
// table and appends them.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cardinalhq/strikeetl/internal/cloudstorage"
	"github.com/cardinalhq/strikeetl/internal/logctx"
)

// ErrUnparseable marks an object whose body is not a JSON object or array
// of objects.
var ErrUnparseable = errors.New("unparseable file")

// Destination appends rows to the target table.
type Destination interface {
	Append(ctx context.Context, rows []Row) error
}

// Result describes one loaded object.
type Result struct {
	File string
	Rows int
	// CoercedNulls counts, per column, values that were present but could
	// not be converted and were loaded as NULL.
	CoercedNulls map[string]int
}

// TotalCoercedNulls sums CoercedNulls.
func (r Result) TotalCoercedNulls() int {
	n := 0
	for _, c := range r.CoercedNulls {
		n += c
	}
	return n
}

type Loader struct {
	client cloudstorage.Client
	dest   Destination
}

func New(client cloudstorage.Client, dest Destination) *Loader {
	return &Loader{client: client, dest: dest}
}

func (l *Loader) Load(ctx context.Context, bucket, key string) (Result, error) {
	res := Result{File: key, CoercedNulls: map[string]int{}}

	data, err := l.client.GetObject(ctx, bucket, key)
	if err != nil {
		return res, fmt.Errorf("downloading %s: %w", key, err)
	}

	objects, err := Parse(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", key, err)
	}
	if len(objects) == 0 {
		logctx.FromContext(ctx).Info("File holds no records", slog.String("file", key))
		return res, nil
	}

	rows := make([]Row, 0, len(objects))
	for _, obj := range objects {
		rows = append(rows, Coerce(obj, res.CoercedNulls))
	}
	if err := l.dest.Append(ctx, rows); err != nil {
		return res, fmt.Errorf("appending %s: %w", key, err)
	}
	res.Rows = len(rows)
	if n := res.TotalCoercedNulls(); n > 0 {
		coercedNullCounter.Add(ctx, int64(n))
	}
	return res, nil
}

// Parse decodes a JSON array of objects, or a bare object as a
// one-element collection. Numbers are kept as json.Number.
func Parse(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrUnparseable)
	}

	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T, not an object", ErrUnparseable, i, elem)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: top-level %T is not an object or array", ErrUnparseable, doc)
	}
}
