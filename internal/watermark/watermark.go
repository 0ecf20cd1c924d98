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

// Package watermark persists the latest processed etl_timestamp as a single
// JSON document in object storage.
package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cardinalhq/strikeetl/internal/cloudstorage"
	"github.com/cardinalhq/strikeetl/internal/strikes"
)

var (
	// ErrNotFound means no watermark document exists yet.
	ErrNotFound = errors.New("watermark not found")
	// ErrUnreadable means the document exists but could not be read or parsed.
	ErrUnreadable = errors.New("watermark unreadable")
)

type document struct {
	LatestETLTimestamp string `json:"latest_etl_timestamp"`
}

// Store reads and writes one watermark document.
type Store struct {
	client cloudstorage.Client
	bucket string
	key    string
}

func NewStore(client cloudstorage.Client, bucket, key string) *Store {
	return &Store{client: client, bucket: bucket, key: key}
}

// Location returns "bucket/key" for log lines.
func (s *Store) Location() string {
	return s.bucket + "/" + s.key
}

// Load returns the persisted watermark. Errors wrap ErrNotFound or
// ErrUnreadable.
func (s *Store) Load(ctx context.Context) (time.Time, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.key)
	if err != nil {
		if errors.Is(err, cloudstorage.ErrObjectNotFound) {
			return time.Time{}, fmt.Errorf("%s: %w", s.Location(), ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("%w: reading %s: %w", ErrUnreadable, s.Location(), err)
	}
	return decode(data)
}

func decode(data []byte) (time.Time, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if doc.LatestETLTimestamp == "" {
		return time.Time{}, fmt.Errorf("%w: latest_etl_timestamp missing", ErrUnreadable)
	}
	ts, err := strikes.ParseTimestamp(doc.LatestETLTimestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: latest_etl_timestamp %q: %w", ErrUnreadable, doc.LatestETLTimestamp, err)
	}
	return ts, nil
}

// Encode renders the watermark document for ts.
func Encode(ts time.Time) ([]byte, error) {
	return json.Marshal(document{LatestETLTimestamp: strikes.FormatTimestamp(ts)})
}

// Save overwrites the watermark document with ts.
func (s *Store) Save(ctx context.Context, ts time.Time) error {
	data, err := Encode(ts)
	if err != nil {
		return err
	}
	if err := s.client.PutObject(ctx, s.bucket, s.key, "application/json", data); err != nil {
		return fmt.Errorf("writing watermark %s: %w", s.Location(), err)
	}
	return nil
}
