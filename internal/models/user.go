package models

import "time"

type Role string

const (
	RoleClient    Role = "client"
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

type BadgeTier string

const (
	BadgeBronze BadgeTier = "Bronze"
	BadgeSilver BadgeTier = "Silver"
	BadgeGold   BadgeTier = "Gold"
)

type User struct {
	ID             string    `db:"id" json:"id"`
	Role           Role      `db:"role" json:"role"`
	DisplayName    string    `db:"display_name" json:"displayName"`
	Badge          BadgeTier `db:"badge" json:"badge"`
	TelegramChatID *int64    `db:"telegram_chat_id" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
