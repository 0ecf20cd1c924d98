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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/strikeetl/internal/extract"
	"github.com/cardinalhq/strikeetl/internal/gcpclient"
	"github.com/cardinalhq/strikeetl/internal/logctx"
)

type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Trigger runs one load pass per extract notification. Messages are
// handled one at a time.
type Trigger struct {
	sub    *pubsub.Subscription
	tracer trace.Tracer
	runner Runner
}

func NewTrigger(client *gcpclient.PubSubClient, subscriptionID string, runner Runner) *Trigger {
	sub := client.Client.Subscription(subscriptionID)
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1
	return &Trigger{sub: sub, tracer: client.Tracer, runner: runner}
}

// Run receives until ctx is cancelled.
func (t *Trigger) Run(ctx context.Context) error {
	logctx.FromContext(ctx).Info("Waiting for extract notifications", slog.String("subscription", t.sub.ID()))
	err := t.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		ctx, span := t.tracer.Start(ctx, "load.trigger",
			trace.WithAttributes(attribute.String("message_id", msg.ID)))
		defer span.End()

		if handleNotification(ctx, t.runner, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receiving from %s: %w", t.sub.ID(), err)
	}
	return nil
}

// handleNotification runs a load pass and reports whether the message
// should be acknowledged. Only an aborted run asks for redelivery; files
// that failed individually are retried by the next pass anyway.
func handleNotification(ctx context.Context, runner Runner, data []byte) bool {
	ll := logctx.FromContext(ctx)

	var n extract.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		ll.Warn("Ignoring unreadable notification body", slog.Any("error", err))
	} else {
		ll.Info("Received extract notification",
			slog.String("folder", n.Folder),
			slog.Int("objects", len(n.Objects)))
	}

	_, err := runner.Run(ctx)
	if errors.Is(err, ErrRunAborted) {
		ll.Error("Load run aborted, requesting redelivery", slog.Any("error", err))
		return false
	}
	if err != nil {
		ll.Error("Load run finished with errors", slog.Any("error", err))
	}
	return true
}
