package middleware

import (
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Logger logs every update. Only the command is logged; its payload may
// carry a link token.
func Logger(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()

			var chatID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}

			command := ""
			if message := c.Message(); message != nil {
				command = message.Text
				if message.Payload != "" && len(message.Text) > len(message.Payload) {
					command = message.Text[:len(message.Text)-len(message.Payload)-1]
				}
			}

			err := next(c)

			fields := []zap.Field{
				zap.Int64("chat_id", chatID),
				zap.String("command", command),
				zap.Duration("duration", time.Since(start)),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				logger.Error("telegram handler error", fields...)
			} else {
				logger.Info("telegram update handled", fields...)
			}

			return err
		}
	}
}
