package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"engagement-engine/internal/storage/redis"

	"go.uber.org/zap"
)

// RedisBroker publishes events on the user's redis channel so they reach
// sockets held by any process; Run relays the channel into the local hub.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewRedisBroker(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		hub:    hub,
		logger: logger,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, userID, event string, data interface{}) error {
	env, err := newEnvelope(userID, event, data)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return b.client.Publish(ctx, redis.UserChannel(userID), payload)
}

// Run blocks until ctx is done. ready, when not nil, is closed once the
// subscription is confirmed.
func (b *RedisBroker) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.client.PSubscribe(ctx, redis.UserChannelPattern())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe realtime channels: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	b.logger.Info("realtime relay started", zap.String("pattern", redis.UserChannelPattern()))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("realtime relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			userID, ok := redis.UserFromChannel(msg.Channel)
			if !ok {
				continue
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("dropping malformed realtime message",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			env.UserID = userID
			b.hub.Deliver(env)
		}
	}
}
