package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/server/notifications"
)

type countResponse struct {
	Count int `json:"count"`
}

func (s *Server) unread(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Unread(claimsFrom(r.Context()).UserID))
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, countResponse{Count: s.hub.UnreadCount(claimsFrom(r.Context()).UserID)})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "notification id must be an integer")
		return
	}

	if err := s.hub.MarkRead(claimsFrom(r.Context()).UserID, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "mark as read failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	s.hub.MarkAllRead(claimsFrom(r.Context()).UserID)
	w.WriteHeader(http.StatusNoContent)
}

// stream holds the response open as text/event-stream. It writes a
// connect record, then notification records as they are published and a
// keepalive record every keepalive interval.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}

	ctx := r.Context()
	userID := claimsFrom(ctx).UserID

	events, cancel := s.hub.Subscribe(userID)
	defer cancel()

	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()
	s.logger.Info(ctx, "notification stream opened", "user_id", userID)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, "event: connect\ndata: connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "notification stream closed", "user_id", userID)
			return
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": ping\nevent: keepalive\ndata:\n\n")
		case n, ok := <-events:
			if !ok {
				return
			}
			err = writeNotification(w, n)
		}
		if err != nil {
			s.logger.Info(ctx, "notification stream write failed", "user_id", userID, "error", err)
			return
		}
		flusher.Flush()
	}
}

func writeNotification(w http.ResponseWriter, n notifications.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: notification\ndata: %s\n\n", n.ID, data)
	return err
}

type publishRequest struct {
	Email       string          `json:"email"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	RelatedData json.RawMessage `json:"relatedData,omitempty"`
}

// devPublish creates a notification for the user with the given email,
// standing in for the services that produce them in production.
func (s *Server) devPublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed notification")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "title is required")
		return
	}
	if req.Type == "" {
		req.Type = "SYSTEM"
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown user")
		return
	}

	n, delivered := s.hub.Publish(user.ID, req.Type, req.Title, req.Content, req.RelatedData)
	s.metrics.Publish()
	s.logger.Debug(r.Context(), "notification published", "user_id", user.ID, "id", n.ID, "streams", delivered)
	writeJSON(w, http.StatusCreated, n)
}
