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
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	fileCounter metric.Int64Counter
	rowCounter  metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/strikeetl/internal/load")

	var err error
	fileCounter, err = meter.Int64Counter(
		"strikeetl.load.files",
		metric.WithDescription("Number of files processed by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create load.files counter: %w", err))
	}

	rowCounter, err = meter.Int64Counter(
		"strikeetl.load.rows",
		metric.WithDescription("Number of rows appended to the destination table"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create load.rows counter: %w", err))
	}
}

func outcomeAttr(outcome string) metric.MeasurementOption {
	return metric.WithAttributeSet(attribute.NewSet(attribute.String("outcome", outcome)))
}
