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
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/strikeetl/internal/cloudstorage"
	"github.com/cardinalhq/strikeetl/internal/storageprofile"
	"github.com/cardinalhq/strikeetl/internal/strikes"
)

func strike(i int64, url string) strikes.Record {
	return strikes.Record{
		"date":              "2022-10-13",
		"number_of_strikes": i,
		"center_point_geom": "POINT(-80.1 25.7)",
		"source_url":        url,
		"etl_timestamp":     time.Date(2022, 10, 13, 0, 0, int(i%60), 0, time.UTC),
	}
}

func encodedSize(t *testing.T, r strikes.Record) int {
	t.Helper()
	b, err := strikes.Encode(r)
	require.NoError(t, err)
	return len(b)
}

func flatten(parts []Partition) []strikes.Record {
	var out []strikes.Record
	for _, p := range parts {
		out = append(out, p.Records...)
	}
	return out
}

func TestPlanRejectsBadBound(t *testing.T) {
	_, err := Plan([]strikes.Record{strike(1, "x")}, 0)
	assert.Error(t, err)
}

func TestPlanEmpty(t *testing.T) {
	parts, err := Plan(nil, DefaultMaxBytes)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPlanOneRecordPerPartition(t *testing.T) {
	recs := []strikes.Record{strike(1, "a"), strike(2, "b"), strike(3, "c")}
	size := encodedSize(t, recs[0])
	for _, r := range recs {
		require.Equal(t, size, encodedSize(t, r))
	}

	parts, err := Plan(recs, size)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	for i, p := range parts {
		assert.Equal(t, i, p.Seq)
		assert.Equal(t, []strikes.Record{recs[i]}, p.Records)
		assert.Equal(t, size, p.Size)
	}
}

func TestPlanExactFit(t *testing.T) {
	recs := []strikes.Record{strike(1, "a"), strike(2, "b"), strike(3, "c")}
	size := encodedSize(t, recs[0])

	parts, err := Plan(recs, 2*size)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0].Records, 2)
	assert.Equal(t, 2*size, parts[0].Size)
	assert.Len(t, parts[1].Records, 1)

	parts, err = Plan(recs, 2*size-1)
	require.NoError(t, err)
	assert.Len(t, parts, 3)
}

func TestPlanOversizedRecord(t *testing.T) {
	big := strike(2, strings.Repeat("x", 400))
	recs := []strikes.Record{strike(1, "a"), big, strike(3, "c")}
	small := encodedSize(t, recs[0])

	parts, err := Plan(recs, small*2+1)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, []strikes.Record{big}, parts[1].Records)
	assert.Greater(t, parts[1].Size, small*2+1)
}

func TestPlanBoundAndOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(40)
		recs := make([]strikes.Record, n)
		maxSingle := 0
		for i := range recs {
			recs[i] = strike(int64(i), strings.Repeat("u", rng.Intn(300)))
			if s := encodedSize(t, recs[i]); s > maxSingle {
				maxSingle = s
			}
		}
		bound := 100 + rng.Intn(1500)

		parts, err := Plan(recs, bound)
		require.NoError(t, err)

		if n == 0 {
			assert.Empty(t, parts)
			continue
		}
		assert.Equal(t, recs, flatten(parts), "records must round-trip in order")
		for i, p := range parts {
			assert.Equal(t, i, p.Seq)
			require.NotEmpty(t, p.Records)
			if len(p.Records) > 1 {
				assert.LessOrEqual(t, p.Size, bound)
			}
			if i+1 < len(parts) {
				next := encodedSize(t, parts[i+1].Records[0])
				assert.Greater(t, p.Size+next, bound, "partition %d flushed early", i)
			}
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	recs := make([]strikes.Record, 25)
	for i := range recs {
		recs[i] = strike(int64(i), strings.Repeat("q", i*7))
	}
	first, err := Plan(recs, 700)
	require.NoError(t, err)
	for range 5 {
		again, err := Plan(recs, 700)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBody(t *testing.T) {
	recs := []strikes.Record{strike(1, "a&b"), strike(2, "<c>")}
	parts, err := Plan(recs, DefaultMaxBytes)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	body, err := parts[0].Body()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"source_url":"a&b"`)
	assert.Contains(t, string(body), `"etl_timestamp":"2022-10-13 00:00:01.000000 UTC"`)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Len(t, decoded, 2)

	// A partition built by hand encodes its records on demand.
	manual := Partition{Records: recs}
	manualBody, err := manual.Body()
	require.NoError(t, err)
	assert.Equal(t, body, manualBody)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "2022-12-01 10:11:12.000000 UTC/partition_3.json", ObjectKey("2022-12-01 10:11:12.000000 UTC", 3))
}

func TestWriter(t *testing.T) {
	ctx := context.Background()
	client, err := cloudstorage.NewFileClientProvider(t.TempDir()).NewClient(ctx, storageprofile.StorageProfile{})
	require.NoError(t, err)

	recs := []strikes.Record{strike(1, "a"), strike(2, "b"), strike(3, "c")}
	parts, err := Plan(recs, encodedSize(t, recs[0]))
	require.NoError(t, err)

	keys, err := NewWriter(client, "data").Write(ctx, "folder", parts)
	require.NoError(t, err)
	assert.Equal(t, []string{"folder/partition_0.json", "folder/partition_1.json", "folder/partition_2.json"}, keys)

	listed, err := client.ListObjects(ctx, "data", "folder/")
	require.NoError(t, err)
	require.Len(t, listed, 3)

	raw, err := client.GetObject(ctx, "data", "folder/partition_1.json")
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "b", decoded[0]["source_url"])
}

type flakyClient struct {
	cloudstorage.Client
	failOn string
	puts   []string
}

func (c *flakyClient) PutObject(_ context.Context, _, key, _ string, _ []byte) error {
	if key == c.failOn {
		return errors.New("503 backend error")
	}
	c.puts = append(c.puts, key)
	return nil
}

func TestWriterStopsOnFailure(t *testing.T) {
	recs := []strikes.Record{strike(1, "a"), strike(2, "b"), strike(3, "c")}
	parts, err := Plan(recs, encodedSize(t, recs[0]))
	require.NoError(t, err)

	client := &flakyClient{failOn: "f/partition_1.json"}
	keys, err := NewWriter(client, "data").Write(context.Background(), "f", parts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "f/partition_1.json")
	assert.Equal(t, []string{"f/partition_0.json"}, keys)
	assert.Equal(t, []string{"f/partition_0.json"}, client.puts)
}

func TestWriterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	parts, err := Plan([]strikes.Record{strike(1, "a")}, DefaultMaxBytes)
	require.NoError(t, err)

	client := &flakyClient{}
	keys, err := NewWriter(client, "data").Write(ctx, "f", parts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, keys)
	assert.Empty(t, client.puts)
}
