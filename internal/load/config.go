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

package load

import (
	"errors"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/ledger"
)

type Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	// DestinationTable is project.dataset.table.
	DestinationTable string `mapstructure:"destination_table"`
	// QuarantineUnparseable records files that fail to parse as rejected
	// so they are not retried.
	QuarantineUnparseable bool `mapstructure:"quarantine_unparseable"`
	// Subscription receives extract notifications in watch mode.
	Subscription string `mapstructure:"subscription"`
	// HealthCheckPort serves /livez and /readyz in watch mode.
	HealthCheckPort int `mapstructure:"health_check_port"`

	Ledger ledger.Config `mapstructure:"ledger"`
}

func DefaultConfig() Config {
	return Config{
		Bucket:                "assignmentdbxgcp",
		DestinationTable:      "luminous-wharf-450412-p2.Assignment.load_strike_data",
		QuarantineUnparseable: true,
		HealthCheckPort:       8090,
		Ledger:                ledger.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	if _, err := gcpclient.ParseTableID(c.DestinationTable); err != nil {
		errs = append(errs, err)
	}
	if err := c.Ledger.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
