// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package websocket

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/events"
)

// Subscriber registers bus handlers. *events.Bus implements it.
type Subscriber interface {
	Subscribe(name, topic string, fn events.HandlerFunc) error
}

// topicMessages maps bus topics to the message types sent to clients.
var topicMessages = map[string]string{
	events.TopicEntityChanged:   MessageTypeEntityChanged,
	events.TopicSnapshotUpdated: MessageTypeSnapshotUpdated,
	events.TopicPlayRecorded:    MessageTypePlayRecorded,
	events.TopicAccountRemoved:  MessageTypeAccountRemoved,
}

// Subscribe forwards every client-facing bus topic to the hub.
func (h *Hub) Subscribe(bus Subscriber) error {
	for _, topic := range []string{
		events.TopicEntityChanged,
		events.TopicSnapshotUpdated,
		events.TopicPlayRecorded,
		events.TopicAccountRemoved,
	} {
		if err := bus.Subscribe("websocket."+topic, topic, h.Forward(topicMessages[topic])); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Forward returns a bus handler that broadcasts each payload as messageType.
// The payload is passed through unchanged; its username field selects the
// receiving clients.
func (h *Hub) Forward(messageType string) events.HandlerFunc {
	return func(_ context.Context, payload []byte) error {
		var head struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(payload, &head); err != nil {
			return fmt.Errorf("decode %s payload: %w", messageType, err)
		}
		h.Broadcast(messageType, head.Username, json.RawMessage(payload))
		return nil
	}
}
