package postgres

import (
	"context"
	"fmt"

	"engagement-engine/internal/models"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

// EnsureUser inserts the profile row if it does not exist yet. Profiles are
// owned by the account service; this side only needs a row to hang badges,
// reports and foreign keys on.
func (s *Store) EnsureUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, role, display_name, badge, telegram_chat_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.sess.
		InsertBySql(query, user.ID, user.Role, user.DisplayName, user.Badge, user.TelegramChatID, user.CreatedAt).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to ensure user",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return fmt.Errorf("ensure user: %w", err)
	}

	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User

	err := s.sess.
		Select("*").
		From("users").
		Where("id = ?", userID).
		LoadOneContext(ctx, &user)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get user",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (s *Store) SetTelegramChat(ctx context.Context, userID string, chatID *int64) error {
	_, err := s.sess.
		Update("users").
		Set("telegram_chat_id", chatID).
		Where("id = ?", userID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to set telegram chat",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("set telegram chat: %w", err)
	}

	s.logger.Info("telegram chat updated",
		zap.String("user_id", userID),
		zap.Bool("linked", chatID != nil),
	)

	return nil
}

func (s *Store) UnlinkTelegramChat(ctx context.Context, chatID int64) error {
	_, err := s.sess.
		Update("users").
		Set("telegram_chat_id", nil).
		Where("telegram_chat_id = ?", chatID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to unlink telegram chat",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		return fmt.Errorf("unlink telegram chat: %w", err)
	}

	return nil
}
