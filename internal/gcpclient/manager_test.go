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

package gcpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOptions(t *testing.T) {
	cfg := buildConfig([]ClientOption{
		WithProject("luminous-wharf"),
		WithImpersonateServiceAccount("etl@project.iam.gserviceaccount.com"),
	})
	assert.Equal(t, "luminous-wharf", cfg.ProjectID)
	assert.Equal(t, "etl@project.iam.gserviceaccount.com", cfg.ServiceAccountEmail)
}

func TestClientKey(t *testing.T) {
	key1 := clientKey{ProjectID: "p", ServiceAccountEmail: "test@example.com"}
	key2 := clientKey(buildConfig([]ClientOption{WithProject("p"), WithImpersonateServiceAccount("test@example.com")}))
	key3 := clientKey{ProjectID: "p", ServiceAccountEmail: "other@example.com"}

	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}

func TestProjectRequired(t *testing.T) {
	m, err := NewManager(context.Background())
	require.NoError(t, err)

	_, err = m.GetBigQuery(context.Background())
	require.Error(t, err)
	_, err = m.GetPubSub(context.Background())
	require.Error(t, err)
	require.NoError(t, m.Close())
}
