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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/strikeetl/internal/storageprofile"
)

func TestFileClientLifecycle(t *testing.T) {
	ctx := context.Background()
	provider := NewFileClientProvider(t.TempDir())
	client, err := provider.NewClient(ctx, storageprofile.StorageProfile{})
	require.NoError(t, err)

	_, err = client.GetObject(ctx, "bucket", "path/file.json")
	require.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, client.PutObject(ctx, "bucket", "path/file.json", "application/json", []byte(`[1]`)))
	data, err := client.GetObject(ctx, "bucket", "path/file.json")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(data))

	// overwrite
	require.NoError(t, client.PutObject(ctx, "bucket", "path/file.json", "application/json", []byte(`[2]`)))
	data, err = client.GetObject(ctx, "bucket", "path/file.json")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(data))
}

func TestFileClientListObjects(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	client, err := NewFileClientProvider(base).NewClient(ctx, storageprofile.StorageProfile{})
	require.NoError(t, err)

	objects, err := client.ListObjects(ctx, "missing-bucket", "")
	require.NoError(t, err)
	assert.Empty(t, objects)

	for _, key := range []string{"b/partition_1.json", "a/partition_0.json", "a/notes.txt"} {
		require.NoError(t, client.PutObject(ctx, "bucket", key, "application/json", []byte("{}")))
	}
	// stray temp file from an interrupted upload
	require.NoError(t, os.WriteFile(filepath.Join(base, "bucket", "a", ".upload-123"), []byte("x"), 0o644))

	objects, err = client.ListObjects(ctx, "bucket", "")
	require.NoError(t, err)
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
		assert.Equal(t, int64(2), o.Size)
	}
	assert.Equal(t, []string{"a/notes.txt", "a/partition_0.json", "b/partition_1.json"}, keys)

	objects, err = client.ListObjects(ctx, "bucket", "b/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "b/partition_1.json", objects[0].Key)
}

func TestFileClientRejectsEscapingKeys(t *testing.T) {
	client := &fileClient{base: t.TempDir()}
	err := client.PutObject(context.Background(), "bucket", "../other/x.json", "application/json", []byte("{}"))
	require.Error(t, err)
}

func TestCloudManagersFileProfile(t *testing.T) {
	base := t.TempDir()
	m := NewCloudManagers(nil)
	client, err := m.NewClient(context.Background(), storageprofile.StorageProfile{
		Bucket:        "bucket",
		CloudProvider: storageprofile.ProviderFile,
		BasePath:      base,
	})
	require.NoError(t, err)
	require.NoError(t, client.PutObject(context.Background(), "bucket", "k.json", "application/json", []byte("{}")))
	_, err = os.Stat(filepath.Join(base, "bucket", "k.json"))
	require.NoError(t, err)

	_, err = m.NewClient(context.Background(), storageprofile.StorageProfile{Bucket: "bucket"})
	require.Error(t, err, "gcp profile without a GCP manager")

	_, err = m.NewClient(context.Background(), storageprofile.StorageProfile{Bucket: "bucket", CloudProvider: "ftp"})
	require.Error(t, err)
}

func TestForBucket(t *testing.T) {
	base := t.TempDir()
	sp := storageprofile.NewStaticProvider(storageprofile.StorageProfile{
		CloudProvider: storageprofile.ProviderFile,
		BasePath:      base,
	})
	client, err := ForBucket(context.Background(), sp, NewCloudManagers(nil), "meta")
	require.NoError(t, err)
	require.NoError(t, client.PutObject(context.Background(), "meta", "wm.json", "application/json", []byte("{}")))
}
