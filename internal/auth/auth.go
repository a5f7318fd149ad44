// Package auth verifies bearer tokens issued by the account service.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role           models.Role `json:"role"`
	Name           string      `json:"name,omitempty"`
	TelegramChatID *int64      `json:"telegram_chat_id,omitempty"`
}

func (c *Claims) Actor() models.Actor {
	return models.Actor{UserID: c.Subject, Role: c.Role}
}

// User is the profile row created the first time a token is seen.
func (c *Claims) User(now time.Time) *models.User {
	return &models.User{
		ID:             c.Subject,
		Role:           c.Role,
		DisplayName:    c.Name,
		Badge:          models.BadgeBronze,
		TelegramChatID: c.TelegramChatID,
		CreatedAt:      now,
	}
}

type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Unauthorized("bearer token is required")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, apperrors.Unauthorized("token subject is required")
	}
	switch claims.Role {
	case models.RoleClient, models.RoleCandidate, models.RoleAdmin:
	default:
		return nil, apperrors.Unauthorized("token role is invalid")
	}

	return &claims, nil
}

// Sign issues an HS256 token. Production tokens come from the account
// service; this is used by tests and local tooling.
func Sign(secret string, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Unauthorized("token is expired")
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.Unauthorized("token signature is invalid")
	}
	return apperrors.Unauthorized("token is invalid")
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(models.Actor)
	return actor, ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
