package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"engagement-engine/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const (
	FrameJoinUserRoom = "join-user-room"
	FrameJoined       = "joined"
	FrameError        = "error"

	maxDecodeErrorsPerConn = 3
)

// Authenticator resolves a bearer token into a user id.
type Authenticator func(ctx context.Context, token string) (string, error)

type wsFrame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	UserID string `json:"userId"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

type userRoom struct {
	subscribers map[*wsPeer]struct{}
}

// Hub keeps one room per user and writes events to the sockets joined to it.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*userRoom
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]*userRoom),
		logger: logger,
	}
}

func (h *Hub) join(userID string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[userID]
	if !ok {
		room = &userRoom{subscribers: make(map[*wsPeer]struct{})}
		h.rooms[userID] = room
	}
	room.subscribers[peer] = struct{}{}
}

func (h *Hub) leave(userID string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[userID]
	if !ok {
		return
	}
	delete(room.subscribers, peer)
	if len(room.subscribers) == 0 {
		delete(h.rooms, userID)
	}
}

func (h *Hub) peers(userID string) []*wsPeer {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[userID]
	if !ok {
		return nil
	}
	peers := make([]*wsPeer, 0, len(room.subscribers))
	for peer := range room.subscribers {
		peers = append(peers, peer)
	}
	return peers
}

// Connections returns the number of sockets joined to the user's room.
func (h *Hub) Connections(userID string) int {
	return len(h.peers(userID))
}

func (h *Hub) Publish(_ context.Context, userID, event string, data interface{}) error {
	env, err := newEnvelope(userID, event, data)
	if err != nil {
		return err
	}
	h.Deliver(env)
	return nil
}

// Deliver writes an already encoded envelope to the user's room. A user
// without connections is not an error.
func (h *Hub) Deliver(env Envelope) {
	frame := wsFrame{Type: "event", Event: env.Event, Payload: env.Data}
	for _, peer := range h.peers(env.UserID) {
		if err := peer.writeFrame(frame); err != nil {
			h.logger.Debug("failed to write realtime frame",
				zap.String("user_id", env.UserID),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		}
	}
}

// Handler serves the websocket endpoint. The token comes from the
// "token" query parameter or the Authorization header.
func (h *Hub) Handler(authenticate Authenticator) http.Handler {
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		userID, _ := conn.Request().Context().Value(wsUserIDContextKey{}).(string)
		h.handleConn(conn, userID)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		}
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		userID, err := authenticate(r.Context(), token)
		if err != nil || userID == "" {
			h.logger.Debug("websocket unauthorized", zap.String("remote", r.RemoteAddr), zap.Error(err))
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), wsUserIDContextKey{}, userID)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})
}

type wsUserIDContextKey struct{}

func (h *Hub) handleConn(conn *websocket.Conn, userID string) {
	defer func() {
		_ = conn.Close()
	}()

	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))
	joined := false
	defer func() {
		if joined {
			h.leave(userID, peer)
		}
	}()

	decodeErrors := 0
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeError(peer, "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Type {
		case FrameJoinUserRoom:
			var payload joinPayload
			if len(frame.Payload) > 0 {
				if err := json.Unmarshal(frame.Payload, &payload); err != nil {
					_ = writeError(peer, "INVALID_ARGUMENT", "invalid join payload")
					continue
				}
			}
			// a socket may only join its own room
			if payload.UserID != "" && payload.UserID != userID {
				_ = writeError(peer, "FORBIDDEN", "cannot join another user's room")
				continue
			}
			if !joined {
				h.join(userID, peer)
				joined = true
			}
			_ = peer.writeFrame(wsFrame{Type: FrameJoined, Payload: mustMarshal(joinPayload{UserID: userID})})
		default:
			_ = writeError(peer, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func writeError(peer *wsPeer, code, message string) error {
	return peer.writeFrame(wsFrame{Type: FrameError, Payload: mustMarshal(errorPayload{Code: code, Message: message})})
}

func mustMarshal(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
