package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/greenoffice/leadchat/pkg/admin"
	"github.com/greenoffice/leadchat/pkg/domain"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.svc.Repository().ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	matched := filter.Apply(records, s.clock())
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": matched,
		"summary":  admin.Summarize(matched),
	})
}

func (s *Server) parseFilter(r *http.Request) (admin.Filter, error) {
	q := r.URL.Query()
	rng, err := admin.ParseRange(q.Get("range"))
	if err != nil {
		return admin.Filter{}, err
	}
	f := admin.Filter{Range: rng, Status: domain.Status(q.Get("status")), Location: s.location}
	if v := q.Get("min_score"); v != "" {
		if f.MinScore, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid min_score %q", v)
		}
	}
	if v := q.Get("role"); v != "" {
		role, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid role %q", v)
		}
		f.Role = &role
	}
	return f, nil
}

func (s *Server) exportLeads(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.Repository().ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := admin.WriteCSV(&buf, records, s.svc.Engine().Graph()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", admin.ExportFilename(s.clock().In(s.location))))
	w.Write(buf.Bytes())
}

func (s *Server) debugSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":    view.SessionID,
		"session":      view.Record,
		"state":        view.State,
		"messages":     view.Messages,
		"messageCount": len(view.Messages),
		"breakdown":    view.Breakdown,
		"health":       s.svc.Health(r.Context()),
		"subscribers":  s.streams.Subscribers(view.SessionID),
	})
}

func (s *Server) cleanupSessions(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.MarkStale(r.Context(), s.staleAfter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"abandoned": n, "staleAfter": s.staleAfter.String()})
}
