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

// Package partition packs records into size-bounded JSON array blobs.
package partition

import (
	"bytes"
	"fmt"

	"github.com/cardinalhq/strikeetl/internal/strikes"
)

// DefaultMaxBytes is the default per-partition bound, 5 KiB.
const DefaultMaxBytes = 5 * 1024

// Partition is an ordered run of records whose summed single-record
// encodings fit the bound, unless it holds one oversized record.
type Partition struct {
	Seq     int
	Records []strikes.Record
	// Size is the sum of the records' encoded sizes in bytes.
	Size int

	encoded [][]byte
}

// Plan greedily packs records in order. A record that would push a
// non-empty partition past maxBytes starts the next one.
func Plan(records []strikes.Record, maxBytes int) ([]Partition, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("partition bound must be positive, got %d", maxBytes)
	}

	var parts []Partition
	var cur Partition
	for i, r := range records {
		b, err := strikes.Encode(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if len(cur.Records) > 0 && cur.Size+len(b) > maxBytes {
			parts = append(parts, cur)
			cur = Partition{Seq: cur.Seq + 1}
		}
		cur.Records = append(cur.Records, r)
		cur.encoded = append(cur.encoded, b)
		cur.Size += len(b)
	}
	if len(cur.Records) > 0 {
		parts = append(parts, cur)
	}
	return parts, nil
}

// Body renders the partition as a JSON array.
func (p Partition) Body() ([]byte, error) {
	encoded := p.encoded
	if len(encoded) != len(p.Records) {
		encoded = make([][]byte, 0, len(p.Records))
		for _, r := range p.Records {
			b, err := strikes.Encode(r)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, b)
		}
	}

	var buf bytes.Buffer
	buf.Grow(p.Size + len(encoded) + 2)
	buf.WriteByte('[')
	buf.Write(bytes.Join(encoded, []byte(",")))
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ObjectKey names partition seq under folder.
func ObjectKey(folder string, seq int) string {
	return fmt.Sprintf("%s/partition_%d.json", folder, seq)
}
