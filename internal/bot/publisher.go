package bot

import (
	"context"
	"fmt"

	"engagement-engine/internal/bot/utils"
	"engagement-engine/internal/models"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Sender is the subset of *tele.Bot used for delivery.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Publisher forwards activity events to the owner's linked Telegram chat.
// Other events are ignored; users without a linked chat are skipped.
type Publisher struct {
	sender  Sender
	users   storage.UserStore
	baseURL string
	logger  *zap.Logger
}

var _ realtime.Publisher = (*Publisher)(nil)

func NewPublisher(sender Sender, users storage.UserStore, baseURL string, logger *zap.Logger) *Publisher {
	return &Publisher{
		sender:  sender,
		users:   users,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, userID, event string, data interface{}) error {
	if event != realtime.EventActivity {
		return nil
	}

	activity, ok := data.(*models.Activity)
	if !ok {
		return nil
	}

	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramChatID == nil {
		return nil
	}

	opts := []interface{}{tele.ModeMarkdownV2}
	if url := utils.ReferenceURL(p.baseURL, activity); url != "" {
		opts = append(opts, utils.InlineLinkKeyboard(url))
	}

	if _, err := p.sender.Send(tele.ChatID(*user.TelegramChatID), utils.FormatActivity(activity), opts...); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	p.logger.Debug("activity sent to telegram",
		zap.String("user_id", userID),
		zap.String("activity_id", activity.ID),
	)

	return nil
}
