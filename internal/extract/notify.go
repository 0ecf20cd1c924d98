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
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/cardinalhq/strikeetl/internal/gcpclient"
)

// Notification announces a completed extract run.
type Notification struct {
	Folder             string   `json:"folder"`
	Objects            []string `json:"objects"`
	LatestETLTimestamp string   `json:"latest_etl_timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// PubSubNotifier publishes notifications to one topic.
type PubSubNotifier struct {
	topic *pubsub.Topic
}

func NewPubSubNotifier(client *gcpclient.PubSubClient, topicID string) *PubSubNotifier {
	return &PubSubNotifier{topic: client.Client.Topic(topicID)}
}

func (p *PubSubNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"folder": n.Folder,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic.ID(), err)
	}
	return nil
}

// Stop flushes pending publishes.
func (p *PubSubNotifier) Stop() {
	p.topic.Stop()
}
