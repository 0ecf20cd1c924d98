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

	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Client provides a unified interface for cloud storage operations across different providers
type Client interface {
	// GetObject returns the full contents of an object.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	// PutObject writes data to key, replacing any existing object.
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error

	// ListObjects returns every object under prefix, in the order the
	// underlying store lists them.
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

// ClientProvider builds a Client for a storage profile.
type ClientProvider interface {
	NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error)
}

// ForBucket resolves the profile for bucket and returns a client for it.
func ForBucket(ctx context.Context, sp storageprofile.StorageProfileProvider, cp ClientProvider, bucket string) (Client, error) {
	profile, err := sp.GetStorageProfileForBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return cp.NewClient(ctx, profile)
}
