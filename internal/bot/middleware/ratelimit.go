package middleware

import (
	"context"
	"strconv"
	"time"

	"engagement-engine/internal/storage/redis"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	MaxUpdatesPerMinute = 20
)

func RateLimit(client *redis.Client, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || client == nil {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			key := redis.RateLimitKey("telegram:" + strconv.FormatInt(chat.ID, 10))
			count, err := client.IncrementWithExpiry(ctx, key, redis.RateLimitWindowTTL)
			if err != nil {
				logger.Error("failed to check rate limit",
					zap.Int64("chat_id", chat.ID),
					zap.Error(err),
				)
				return next(c)
			}

			if count > MaxUpdatesPerMinute {
				logger.Warn("rate limit exceeded",
					zap.Int64("chat_id", chat.ID),
					zap.Int64("count", count),
				)
				return c.Send("⚠️ Too many requests. Please wait a minute.")
			}

			return next(c)
		}
	}
}
