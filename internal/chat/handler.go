package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"vibes/internal/middleware"
	"vibes/internal/realtime"
)

// Broadcaster pushes an event to a realtime group. Satisfied by
// *realtime.Broker; nil disables broadcasting. A broadcast is a best-effort
// notification and never fails the request that triggered it.
type Broadcaster interface {
	Publish(group string, event any, excludeConnID string)
}

type Handler struct {
	repo   *Repository
	broker Broadcaster
}

func NewHandler(repo *Repository, broker Broadcaster) *Handler {
	return &Handler{repo: repo, broker: broker}
}

// ListConversations handles GET /api/chat/conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	conversations, err := h.repo.ListConversations(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if conversations == nil {
		conversations = []Conversation{}
	}

	json.NewEncoder(w).Encode(conversations)
}

// CreateConversation handles POST /api/chat/conversations: find the existing
// 1:1 conversation with the given user or create one.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conversation, created, err := h.repo.CreateOrGet(r.Context(), userID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfChat):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if created {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(conversation)
}

// GetConversation handles GET /api/chat/conversations/{conversationID}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	conversationID, ok := pathConversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	conversation, err := h.repo.GetConversation(r.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(conversation)
}

// ListMessages handles GET /api/chat/conversations/{conversationID}/messages.
// Fetching history marks the other side's messages read, like opening the
// thread in the UI.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	conversationID, ok := pathConversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	if !h.requireParticipant(w, r, conversationID, userID) {
		return
	}

	if _, err := h.repo.MarkRead(r.Context(), conversationID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	messages, err := h.repo.ListMessages(r.Context(), conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []realtime.Message{}
	}

	json.NewEncoder(w).Encode(messages)
}

// SendMessage handles POST /api/chat/conversations/{conversationID}/messages.
// The storage write is the source of truth; the broadcast afterwards is
// best-effort.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	conversationID, ok := pathConversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	if !h.requireParticipant(w, r, conversationID, userID) {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" && req.Image == nil {
		http.Error(w, "message content or image is required", http.StatusBadRequest)
		return
	}

	msg, err := h.repo.CreateMessageWithImage(r.Context(), conversationID, userID, req.Content, req.Image)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.broadcast(realtime.ConversationGroup(conversationID), realtime.NewMessage(*msg))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// MarkRead handles POST /api/chat/conversations/{conversationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	conversationID, ok := pathConversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	if !h.requireParticipant(w, r, conversationID, userID) {
		return
	}

	updated, err := h.repo.MarkRead(r.Context(), conversationID, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if updated > 0 {
		h.broadcast(realtime.ConversationGroup(conversationID), realtime.MessagesRead(userID))
	}

	json.NewEncoder(w).Encode(map[string]int64{"marked_read": updated})
}

func (h *Handler) requireParticipant(w http.ResponseWriter, r *http.Request, conversationID, userID int) bool {
	ok, err := h.repo.IsParticipant(r.Context(), conversationID, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return false
	}
	return true
}

func (h *Handler) broadcast(group string, event any) {
	if h.broker == nil {
		log.Warn().Str("group", group).Msg("broker unavailable, event dropped")
		return
	}
	h.broker.Publish(group, event, "")
}

func pathConversationID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "conversationID"))
	return id, err == nil
}
