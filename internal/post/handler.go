package post

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"vibes/internal/middleware"
	"vibes/internal/realtime"
)

// Broadcaster pushes feed events to connected clients. Satisfied by
// *realtime.Broker. The storage write is always the source of truth; a
// failed or skipped broadcast never fails the request.
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

// ListPosts handles GET /api/posts?user_id=N.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserID(r.Context())

	var authorID *int
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}
		authorID = &id
	}

	posts, err := h.repo.ListPosts(r.Context(), viewerID, authorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []Post{}
	}

	json.NewEncoder(w).Encode(posts)
}

// CreatePost handles POST /api/posts and broadcasts a new_post event.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" && req.Image == nil {
		http.Error(w, "post content or image is required", http.StatusBadRequest)
		return
	}

	p, err := h.repo.CreatePost(r.Context(), userID, req.Content, req.Image)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.broadcast(newPostEvent(p))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

// LikePost handles POST /api/posts/{postID}/like. Liking twice is fine; the
// like event goes out either way with the current count, even when nobody is
// connected to the feed.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	postID, ok := h.requirePost(w, r)
	if !ok {
		return
	}

	created, err := h.repo.Like(r.Context(), userID, postID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	likes, err := h.repo.LikesCount(r.Context(), postID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.broadcast(likeEvent("like", postID, likes))

	detail := "Liked."
	if !created {
		detail = "Already liked."
	}
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// UnlikePost handles POST /api/posts/{postID}/unlike.
func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	postID, ok := h.requirePost(w, r)
	if !ok {
		return
	}

	if err := h.repo.Unlike(r.Context(), userID, postID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	likes, err := h.repo.LikesCount(r.Context(), postID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.broadcast(likeEvent("unlike", postID, likes))

	json.NewEncoder(w).Encode(map[string]string{"detail": "Unliked."})
}

// ListComments handles GET /api/posts/{postID}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.requirePost(w, r)
	if !ok {
		return
	}

	comments, err := h.repo.ListComments(r.Context(), postID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []Comment{}
	}

	json.NewEncoder(w).Encode(comments)
}

// CreateComment handles POST /api/posts/{postID}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	postID, ok := h.requirePost(w, r)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	c, err := h.repo.CreateComment(r.Context(), userID, postID, req.Text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	count, err := h.repo.CommentsCount(r.Context(), postID)
	if err != nil {
		count = 0
	}
	h.broadcast(commentEvent(c, count))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *Handler) requirePost(w http.ResponseWriter, r *http.Request) (int, bool) {
	postID, err := strconv.Atoi(chi.URLParam(r, "postID"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return 0, false
	}

	exists, err := h.repo.PostExists(r.Context(), postID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return 0, false
	}
	if !exists {
		http.Error(w, "post not found", http.StatusNotFound)
		return 0, false
	}
	return postID, true
}

func (h *Handler) broadcast(event UpdateEvent) {
	if h.broker == nil {
		log.Warn().Str("event", event.Event).Msg("broker unavailable, feed event dropped")
		return
	}
	h.broker.Publish(realtime.GroupFeed, event, "")
}
