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

package partition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/strikeetl/internal/cloudstorage"
	"github.com/cardinalhq/strikeetl/internal/logctx"
)

// Writer uploads planned partitions to one bucket.
type Writer struct {
	client cloudstorage.Client
	bucket string
}

func NewWriter(client cloudstorage.Client, bucket string) *Writer {
	return &Writer{client: client, bucket: bucket}
}

// Write uploads each partition as <folder>/partition_<seq>.json and returns
// the keys written. It stops at the first failure; keys already written are
// returned alongside the error.
func (w *Writer) Write(ctx context.Context, folder string, parts []Partition) ([]string, error) {
	ll := logctx.FromContext(ctx)
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return keys, err
		}
		key := ObjectKey(folder, p.Seq)
		body, err := p.Body()
		if err != nil {
			return keys, fmt.Errorf("encoding %s: %w", key, err)
		}
		if err := w.client.PutObject(ctx, w.bucket, key, "application/json", body); err != nil {
			return keys, fmt.Errorf("uploading %s: %w", key, err)
		}
		ll.Info("Uploaded partition",
			slog.String("bucket", w.bucket),
			slog.String("key", key),
			slog.Int("records", len(p.Records)),
			slog.Int("bytes", len(body)))
		keys = append(keys, key)
	}
	return keys, nil
}
