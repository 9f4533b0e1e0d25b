package realtime

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

// PresenceTracker is notified when a user's first chat connection opens and
// when it closes. Implemented by the redis presence tracker; failures are the
// tracker's problem, never the connection's.
type PresenceTracker interface {
	Online(ctx context.Context, userID int) error
	Offline(ctx context.Context, userID int) error
}

// Handler owns the websocket entrypoints. Chat connects are gated on a valid
// token and conversation participancy before the upgrade; feed connects are
// open to everyone.
type Handler struct {
	registry *Registry
	broker   *Broker
	gate     *AuthGate
	store    ChatStore
	presence PresenceTracker
}

func NewHandler(registry *Registry, broker *Broker, gate *AuthGate, store ChatStore, presence PresenceTracker) *Handler {
	return &Handler{
		registry: registry,
		broker:   broker,
		gate:     gate,
		store:    store,
		presence: presence,
	}
}

// ServeChatWS handles GET /ws/chat/{conversationID}?token=<jwt>.
func (h *Handler) ServeChatWS(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusNotFound)
		return
	}

	principal := h.gate.Authenticate(r.URL.Query().Get("token"))

	session := NewChatSession(h.registry, h.broker, h.store, principal, conversationID)
	if err := session.Authorize(r.Context()); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConn(ws)
	if err := session.Join(conn); err != nil {
		ws.Close()
		return
	}

	if h.presence != nil {
		if err := h.presence.Online(r.Context(), principal.ID); err != nil {
			log.Warn().Err(err).Int("user_id", principal.ID).Msg("presence online failed")
		}
	}

	userID := principal.ID
	go conn.writePump()
	go conn.readPump(
		func(raw []byte) { session.HandleFrame(context.Background(), raw) },
		func() {
			session.Close()
			if h.presence != nil {
				if err := h.presence.Offline(context.Background(), userID); err != nil {
					log.Warn().Err(err).Int("user_id", userID).Msg("presence offline failed")
				}
			}
		},
	)
}

// ServeFeedWS handles GET /ws/posts. No auth gate: the feed is an open
// broadcast channel. Inbound frames are read and discarded.
func (h *Handler) ServeFeedWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConn(ws)
	session := NewFeedSession(h.registry)
	session.Join(conn)

	go conn.writePump()
	go conn.readPump(nil, session.Close)
}
