package handlers

import (
	"context"
	"strings"
	"time"

	"engagement-engine/internal/bot/utils"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// /start <token> links the chat to the account the token belongs to.
func HandleStart(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		token := strings.TrimSpace(c.Message().Payload)
		if token == "" {
			return c.Send(utils.FormatHelpMessage(), tele.ModeMarkdownV2)
		}

		chatID := c.Chat().ID

		claims, err := ctx.Verifier.Verify(token)
		if err != nil {
			ctx.Logger.Warn("telegram link rejected",
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
			return c.Send("😔 This link is invalid or has expired. Generate a new one from your profile page.")
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := ctx.Users.EnsureUser(dbCtx, claims.User(time.Now().UTC())); err != nil {
			ctx.Logger.Error("failed to ensure user", zap.String("user_id", claims.Subject), zap.Error(err))
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		if err := ctx.Users.SetTelegramChat(dbCtx, claims.Subject, &chatID); err != nil {
			ctx.Logger.Error("failed to link telegram chat",
				zap.String("user_id", claims.Subject),
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
			return c.Send("😔 Something went wrong. Please try again later.")
		}

		ctx.Logger.Info("telegram chat linked",
			zap.String("user_id", claims.Subject),
			zap.Int64("chat_id", chatID),
		)

		return c.Send(utils.FormatWelcomeMessage(claims.Name), tele.ModeMarkdownV2)
	}
}
