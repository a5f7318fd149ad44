package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"engagement-engine/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/websocket"
)

func authenticate(_ context.Context, token string) (string, error) {
	if userID, ok := strings.CutPrefix(token, "tok-"); ok {
		return userID, nil
	}
	return "", errors.New("bad token")
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub.Handler(authenticate))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, baseURL, token string) *websocket.Conn {
	t.Helper()
	conn, err := websocket.Dial(baseURL+"/?token="+token, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func join(t *testing.T, conn *websocket.Conn, userID string) wsFrame {
	t.Helper()
	payload, err := json.Marshal(joinPayload{UserID: userID})
	require.NoError(t, err)
	require.NoError(t, websocket.JSON.Send(conn, wsFrame{Type: FrameJoinUserRoom, Payload: payload}))

	var reply wsFrame
	require.NoError(t, websocket.JSON.Receive(conn, &reply))
	return reply
}

func TestHub_JoinAndDeliver(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url, "tok-user-1")

	reply := join(t, conn, "user-1")
	require.Equal(t, FrameJoined, reply.Type)
	assert.Equal(t, 1, hub.Connections("user-1"))

	require.NoError(t, hub.Publish(context.Background(), "user-1", EventActivity, map[string]string{"id": "a-1"}))
	require.NoError(t, hub.Publish(context.Background(), "user-2", EventActivity, map[string]string{"id": "other"}))

	var frame wsFrame
	require.NoError(t, websocket.JSON.Receive(conn, &frame))
	assert.Equal(t, "event", frame.Type)
	assert.Equal(t, EventActivity, frame.Event)
	assert.JSONEq(t, `{"id":"a-1"}`, string(frame.Payload))
}

func TestHub_CannotJoinAnotherRoom(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url, "tok-user-1")

	reply := join(t, conn, "user-2")
	require.Equal(t, FrameError, reply.Type)

	var payload errorPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &payload))
	assert.Equal(t, "FORBIDDEN", payload.Code)
	assert.Equal(t, 0, hub.Connections("user-2"))
	assert.Equal(t, 0, hub.Connections("user-1"))
}

func TestHub_RejectsMissingToken(t *testing.T) {
	_, url := startHub(t)
	_, err := websocket.Dial(url+"/", "", "http://localhost/")
	assert.Error(t, err)

	_, err = websocket.Dial(url+"/?token=nope", "", "http://localhost/")
	assert.Error(t, err)
}

func TestRedisBroker_RelaysToHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.New(mr.Addr(), "", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	hub, url := startHub(t)
	broker := NewRedisBroker(client, hub, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx, ready) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	conn := dial(t, url, "tok-user-1")
	require.Equal(t, FrameJoined, join(t, conn, "user-1").Type)

	require.NoError(t, broker.Publish(context.Background(), "user-1", EventApplicationUpdated, map[string]string{"status": "accepted"}))

	var frame wsFrame
	require.NoError(t, websocket.JSON.Receive(conn, &frame))
	assert.Equal(t, EventApplicationUpdated, frame.Event)
	assert.JSONEq(t, `{"status":"accepted"}`, string(frame.Payload))
}

type failing struct{ err error }

func (f failing) Publish(context.Context, string, string, interface{}) error { return f.err }

func TestFanout(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	err := Fanout{failing{first}, Discard{}, nil, failing{second}}.Publish(context.Background(), "u", EventActivity, nil)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)

	assert.NoError(t, Fanout{Discard{}}.Publish(context.Background(), "u", EventActivity, nil))
}
