// Package presence keeps a per-user online flag in Redis while the user has
// at least one open chat connection, and records last-seen when the final
// connection drops. State is ephemeral by design; a dead server's entries
// expire on their own.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func onlineKey(userID int) string   { return fmt.Sprintf("presence:online:%d", userID) }
func lastSeenKey(userID int) string { return fmt.Sprintf("presence:last_seen:%d", userID) }

// Online bumps the user's connection count. The first connection flips the
// user online.
func (t *Tracker) Online(ctx context.Context, userID int) error {
	return t.rdb.Incr(ctx, onlineKey(userID)).Err()
}

// Offline drops one connection; when none remain the user goes offline and
// last-seen is recorded.
func (t *Tracker) Offline(ctx context.Context, userID int) error {
	n, err := t.rdb.Decr(ctx, onlineKey(userID)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	pipe := t.rdb.TxPipeline()
	pipe.Del(ctx, onlineKey(userID))
	pipe.Set(ctx, lastSeenKey(userID), time.Now().UTC().Format(time.RFC3339), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (t *Tracker) IsOnline(ctx context.Context, userID int) (bool, error) {
	n, err := t.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LastSeen returns the zero time when the user was never seen offline.
func (t *Tracker) LastSeen(ctx context.Context, userID int) (time.Time, error) {
	raw, err := t.rdb.Get(ctx, lastSeenKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// Get handles GET /api/users/{userID}/presence.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	online, err := h.tracker.IsOnline(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := struct {
		Online   bool    `json:"online"`
		LastSeen *string `json:"last_seen"`
	}{Online: online}

	if !online {
		if ts, err := h.tracker.LastSeen(r.Context(), userID); err == nil && !ts.IsZero() {
			formatted := ts.Format(time.RFC3339)
			resp.LastSeen = &formatted
		}
	}

	json.NewEncoder(w).Encode(resp)
}
