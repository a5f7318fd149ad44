package handlers

import (
	"engagement-engine/internal/auth"
	"engagement-engine/internal/storage"

	"go.uber.org/zap"
)

// Context contains deps for all handlers
type Context struct {
	Users    storage.UserStore
	Verifier *auth.Verifier
	Logger   *zap.Logger
}
