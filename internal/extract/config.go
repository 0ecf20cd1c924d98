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

package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/cardinalhq/strikeetl/internal/fetch"
	"github.com/cardinalhq/strikeetl/internal/partition"
	"github.com/cardinalhq/strikeetl/internal/strikes"
)

type Config struct {
	DataBucket     string `mapstructure:"data_bucket"`
	MetadataBucket string `mapstructure:"metadata_bucket"`
	WatermarkKey   string `mapstructure:"watermark_key"`

	// Window is the length of the etl_timestamp range queried per run.
	Window time.Duration `mapstructure:"window"`
	// Step is added to the stored watermark to form the next lower bound.
	Step time.Duration `mapstructure:"step"`
	// DefaultStart is the lower bound used when no watermark can be read.
	DefaultStart string `mapstructure:"default_start"`

	PartitionMaxBytes int `mapstructure:"partition_max_bytes"`

	// NotifyTopic, when set, receives a Pub/Sub message after each run
	// that wrote partitions.
	NotifyTopic string `mapstructure:"notify_topic"`

	Fetch fetch.Config `mapstructure:"fetch"`
}

func DefaultConfig() Config {
	return Config{
		DataBucket:        "assignmentdbxgcp",
		MetadataBucket:    "assignment_metadata_gcp",
		WatermarkKey:      "latest_etl_timestamp.json",
		Window:            60 * 24 * time.Hour,
		Step:              time.Second,
		DefaultStart:      "2022-10-13 00:00:00.695188 UTC",
		PartitionMaxBytes: partition.DefaultMaxBytes,
		Fetch:             fetch.DefaultConfig(),
	}
}

// DefaultStartTime parses DefaultStart.
func (c Config) DefaultStartTime() (time.Time, error) {
	ts, err := strikes.ParseTimestamp(c.DefaultStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("default_start: %w", err)
	}
	return ts, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DataBucket == "" {
		errs = append(errs, errors.New("data_bucket is required"))
	}
	if c.MetadataBucket == "" {
		errs = append(errs, errors.New("metadata_bucket is required"))
	}
	if c.WatermarkKey == "" {
		errs = append(errs, errors.New("watermark_key is required"))
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %s", c.Window))
	}
	if c.Step < 0 {
		errs = append(errs, fmt.Errorf("step must not be negative, got %s", c.Step))
	}
	if c.PartitionMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("partition_max_bytes must be positive, got %d", c.PartitionMaxBytes))
	}
	if _, err := c.DefaultStartTime(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Fetch.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
