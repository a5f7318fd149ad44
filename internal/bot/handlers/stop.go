package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// /stop
func HandleStop(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID := c.Chat().ID

		dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := ctx.Users.UnlinkTelegramChat(dbCtx, chatID); err != nil {
			ctx.Logger.Error("failed to unlink telegram chat",
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		return c.Send("🔕 Telegram notifications are off. Send /start with a new token to turn them back on.")
	}
}
