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

package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
)

const providerGCS = "gcs"

// gcsClient implements the Client interface for Google Cloud Storage.
type gcsClient struct {
	storageClient *gcpclient.StorageClient
}

func (c *gcsClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, span := c.storageClient.Tracer.Start(ctx, "cloudstorage.gcsGetObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	reader, err := c.storageClient.Client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			downloadErrors.Add(ctx, 1, errorAttrs(providerGCS, bucket, "not_found"))
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		downloadErrors.Add(ctx, 1, errorAttrs(providerGCS, bucket, "unknown"))
		span.RecordError(err)
		return nil, fmt.Errorf("download gs://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		downloadErrors.Add(ctx, 1, errorAttrs(providerGCS, bucket, "copy_failed"))
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, key, err)
	}

	downloadCount.Add(ctx, 1, bucketAttr(providerGCS, bucket))
	downloadBytes.Add(ctx, int64(len(data)), bucketAttr(providerGCS, bucket))
	return data, nil
}

func (c *gcsClient) PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error {
	ctx, span := c.storageClient.Tracer.Start(ctx, "cloudstorage.gcsPutObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
			attribute.Int("size", len(data)),
		),
	)
	defer span.End()

	writer := c.storageClient.Client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{
		"writer": "strikeetl-go",
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		span.RecordError(err)
		return fmt.Errorf("failed to upload object gs://%s/%s: %w", bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to close writer for gs://%s/%s: %w", bucket, key, err)
	}

	uploadCount.Add(ctx, 1, bucketAttr(providerGCS, bucket))
	uploadBytes.Add(ctx, int64(len(data)), bucketAttr(providerGCS, bucket))
	return nil
}

func (c *gcsClient) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	ctx, span := c.storageClient.Tracer.Start(ctx, "cloudstorage.gcsListObjects",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("prefix", prefix),
		),
	)
	defer span.End()

	var objects []ObjectInfo
	it := c.storageClient.Client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucket, prefix, err)
		}
		objects = append(objects, ObjectInfo{Key: attrs.Name, Size: attrs.Size})
	}

	listCount.Add(ctx, int64(len(objects)), bucketAttr(providerGCS, bucket))
	return objects, nil
}
