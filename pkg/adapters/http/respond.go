package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConversationClosed), errors.Is(err, domain.ErrAwaitingQuestion):
		return http.StatusConflict
	case errors.Is(err, runtime.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, conversation.ErrInvalidSessionID),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, runtime.ErrInvalidUTF8):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Unexpected errors are logged and hidden.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
