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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

const providerFile = "file"

// FileClientProvider serves every profile from one local directory tree,
// with bucket names as subdirectories. It is used for local runs and tests.
type FileClientProvider struct {
	base string
}

func NewFileClientProvider(base string) ClientProvider {
	return &FileClientProvider{base: base}
}

func (p *FileClientProvider) NewClient(_ context.Context, _ storageprofile.StorageProfile) (Client, error) {
	return &fileClient{base: p.base}, nil
}

type fileClient struct {
	base string
}

func (c *fileClient) path(bucket, key string) (string, error) {
	root := filepath.Join(c.base, bucket)
	p := filepath.Join(root, filepath.FromSlash(key))
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes bucket %s", key, bucket)
	}
	return p, nil
}

func (c *fileClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	src, err := c.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			downloadErrors.Add(ctx, 1, errorAttrs(providerFile, bucket, "not_found"))
			return nil, fmt.Errorf("file %s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		downloadErrors.Add(ctx, 1, errorAttrs(providerFile, bucket, "unknown"))
		return nil, err
	}
	downloadCount.Add(ctx, 1, bucketAttr(providerFile, bucket))
	downloadBytes.Add(ctx, int64(len(data)), bucketAttr(providerFile, bucket))
	return data, nil
}

// PutObject writes through a temp file and rename so readers never see a
// partial object.
func (c *fileClient) PutObject(ctx context.Context, bucket, key, _ string, data []byte) error {
	dst, err := c.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	uploadCount.Add(ctx, 1, bucketAttr(providerFile, bucket))
	uploadBytes.Add(ctx, int64(len(data)), bucketAttr(providerFile, bucket))
	return nil
}

// ListObjects walks the bucket directory in lexical order, skipping
// in-flight upload temp files.
func (c *fileClient) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	root := filepath.Join(c.base, bucket)
	var objects []ObjectInfo
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
	}
	listCount.Add(ctx, int64(len(objects)), bucketAttr(providerFile, bucket))
	return objects, nil
}
