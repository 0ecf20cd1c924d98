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
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	runCounter       metric.Int64Counter
	recordCounter    metric.Int64Counter
	partitionCounter metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/strikeetl/internal/extract")

	var err error
	runCounter, err = meter.Int64Counter(
		"strikeetl.extract.runs",
		metric.WithDescription("Number of extract runs by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create extract.runs counter: %w", err))
	}

	recordCounter, err = meter.Int64Counter(
		"strikeetl.extract.records",
		metric.WithDescription("Number of cleaned records extracted"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create extract.records counter: %w", err))
	}

	partitionCounter, err = meter.Int64Counter(
		"strikeetl.extract.partitions",
		metric.WithDescription("Number of partition objects written"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create extract.partitions counter: %w", err))
	}
}

func outcomeAttr(outcome string) metric.MeasurementOption {
	return metric.WithAttributeSet(attribute.NewSet(attribute.String("outcome", outcome)))
}
