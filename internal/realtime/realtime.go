// Package realtime pushes best-effort events to a per-user channel.
// Delivery is fire-and-forget; the persisted activity is the durable record.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Events pushed to a user's room.
const (
	EventActivity               = "activity"
	EventApplicationUpdated     = "application-updated"
	EventNewApplication         = "new-application"
	EventApplicationWithdrawn   = "application-withdrawn"
	EventRecommendationReceived = "recommendation-received"
	EventActivityUpdated        = "activity-updated"
	EventActivityRemoved        = "activity-removed"
)

// Publisher delivers one event to every connection of a user.
type Publisher interface {
	Publish(ctx context.Context, userID, event string, data interface{}) error
}

// Envelope is the wire shape shared by websocket frames and the redis relay.
type Envelope struct {
	UserID string          `json:"userId,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func newEnvelope(userID, event string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{UserID: userID, Event: event, Data: raw}, nil
}

// Fanout publishes to every publisher and joins their failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, userID, event string, data interface{}) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, userID, event, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, string, interface{}) error { return nil }
