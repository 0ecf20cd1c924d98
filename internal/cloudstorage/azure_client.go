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
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/strikeetl/internal/azureclient"
)

const providerAzure = "azure"

// azureClient implements the Client interface for Azure Blob Storage. The
// bucket is the container name.
type azureClient struct {
	blobClient *azureclient.BlobClient
}

func (c *azureClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureGetObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	resp, err := c.blobClient.Client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			downloadErrors.Add(ctx, 1, errorAttrs(providerAzure, bucket, "not_found"))
			return nil, fmt.Errorf("azure %s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		downloadErrors.Add(ctx, 1, errorAttrs(providerAzure, bucket, "unknown"))
		span.RecordError(err)
		return nil, fmt.Errorf("download blob %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		downloadErrors.Add(ctx, 1, errorAttrs(providerAzure, bucket, "copy_failed"))
		return nil, fmt.Errorf("read blob %s/%s: %w", bucket, key, err)
	}

	downloadCount.Add(ctx, 1, bucketAttr(providerAzure, bucket))
	downloadBytes.Add(ctx, int64(len(data)), bucketAttr(providerAzure, bucket))
	return data, nil
}

func (c *azureClient) PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azurePutObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
			attribute.Int("size", len(data)),
		),
	)
	defer span.End()

	_, err := c.blobClient.Client.UploadBuffer(ctx, bucket, key, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"writer": to.Ptr("strikeetl-go"),
		},
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(contentType),
		},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upload blob %s/%s: %w", bucket, key, err)
	}

	uploadCount.Add(ctx, 1, bucketAttr(providerAzure, bucket))
	uploadBytes.Add(ctx, int64(len(data)), bucketAttr(providerAzure, bucket))
	return nil
}

func (c *azureClient) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	ctx, span := c.blobClient.Tracer.Start(ctx, "cloudstorage.azureListObjects",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("prefix", prefix),
		),
	)
	defer span.End()

	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}

	var objects []ObjectInfo
	pager := c.blobClient.Client.NewListBlobsFlatPager(bucket, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("list blobs %s/%s: %w", bucket, prefix, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := ObjectInfo{Key: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				info.Size = *item.Properties.ContentLength
			}
			objects = append(objects, info)
		}
	}

	listCount.Add(ctx, int64(len(objects)), bucketAttr(providerAzure, bucket))
	return objects, nil
}
