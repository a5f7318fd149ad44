package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"engagement-engine/internal/auth"
	"engagement-engine/internal/models"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	tele "gopkg.in/telebot.v3"
)

const testSecret = "bot-secret"

type fakeAPI struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.sends = append(f.sends, r.URL.Path+" "+string(body))
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func newTestBot(t *testing.T) (*Bot, *memory.Store, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(srv.Close)

	store := memory.New()
	b, err := New(Options{Token: "test-token", URL: srv.URL, Offline: true, Synchronous: true},
		store, nil, auth.NewVerifier(testSecret), zaptest.NewLogger(t))
	require.NoError(t, err)

	return b, store, api
}

func linkToken(t *testing.T, userID string) string {
	t.Helper()
	signed, err := auth.Sign(testSecret, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: models.RoleCandidate,
		Name: "Ada",
	})
	require.NoError(t, err)
	return signed
}

func command(text string) tele.Update {
	return tele.Update{
		ID: 1,
		Message: &tele.Message{
			ID:     1,
			Text:   text,
			Chat:   &tele.Chat{ID: 42, Type: tele.ChatPrivate},
			Sender: &tele.User{ID: 42},
		},
	}
}

func TestBot_StartLinksChat(t *testing.T) {
	b, store, api := newTestBot(t)

	b.ProcessUpdate(command("/start " + linkToken(t, "cand-1")))

	user, err := store.GetUser(context.Background(), "cand-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, user.TelegramChatID)
	assert.Equal(t, int64(42), *user.TelegramChatID)

	calls := api.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "/sendMessage")

	b.ProcessUpdate(command("/stop"))
	user, err = store.GetUser(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Nil(t, user.TelegramChatID)
}

func TestBot_StartRejectsBadToken(t *testing.T) {
	b, store, api := newTestBot(t)

	b.ProcessUpdate(command("/start not-a-token"))

	user, err := store.GetUser(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Len(t, api.calls(), 1)
}

type fakeSender struct {
	to   []tele.Recipient
	what []interface{}
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.to = append(f.to, to)
	f.what = append(f.what, what)
	return &tele.Message{}, f.err
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	chatID := int64(77)
	require.NoError(t, store.EnsureUser(ctx, &models.User{ID: "linked", TelegramChatID: &chatID}))
	require.NoError(t, store.EnsureUser(ctx, &models.User{ID: "unlinked"}))

	sender := &fakeSender{}
	p := NewPublisher(sender, store, "https://example.com", zaptest.NewLogger(t))

	activity := &models.Activity{ID: "a-1", Type: models.ActivityApplicationAccepted, Status: models.ActivityStatusSuccess, Message: "Accepted!"}

	require.NoError(t, p.Publish(ctx, "linked", realtime.EventActivity, activity))
	require.NoError(t, p.Publish(ctx, "unlinked", realtime.EventActivity, activity))
	require.NoError(t, p.Publish(ctx, "missing", realtime.EventActivity, activity))
	require.NoError(t, p.Publish(ctx, "linked", realtime.EventApplicationUpdated, activity))

	require.Len(t, sender.to, 1)
	assert.Equal(t, "77", sender.to[0].Recipient())
	assert.True(t, strings.Contains(sender.what[0].(string), `Accepted\!`))
}

func TestPublisher_SendFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	chatID := int64(77)
	require.NoError(t, store.EnsureUser(ctx, &models.User{ID: "linked", TelegramChatID: &chatID}))

	p := NewPublisher(&fakeSender{err: assert.AnError}, store, "", zaptest.NewLogger(t))
	err := p.Publish(ctx, "linked", realtime.EventActivity, &models.Activity{ID: "a-1"})
	assert.ErrorIs(t, err, assert.AnError)
}
