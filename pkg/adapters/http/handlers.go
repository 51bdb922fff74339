package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/greenoffice/leadchat/internal/presentation/graph"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/knowledge"
)

type startRequest struct {
	SessionID string `json:"sessionId"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type chatRequest struct {
	SessionID   string      `json:"sessionId"`
	Message     string      `json:"message"`
	MessageType domain.Role `json:"messageType"`
}

type knowledgeRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

type assistRequest struct {
	Query   string `json:"query"`
	Type    string `json:"type"`
	Context *struct {
		QuestionContext     string   `json:"questionContext"`
		ConversationHistory []string `json:"conversationHistory"`
	} `json:"context"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	deps := s.svc.Health(r.Context())
	status := http.StatusOK
	for _, v := range deps {
		if v != "ok" {
			status = http.StatusServiceUnavailable
		}
	}
	resp := map[string]string{"status": "ok"}
	if status != http.StatusOK {
		resp["status"] = "degraded"
	}
	for k, v := range deps {
		resp[k] = v
	}
	writeJSON(w, status, resp)
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "leadchat",
		"version":     strings.TrimSpace(s.version),
		"api_version": s.apiVersion,
	})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.svc.Start(r.Context(), body.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	reply, err := s.svc.Abandon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(reply.Diff)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.svc.Answer(r.Context(), chi.URLParam(r, "id"), body.Answer)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, reply)
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	s.publish(reply.Diff)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SessionID == "" || body.Message == "" {
		writeError(w, http.StatusBadRequest, "sessionId and message are required")
		return
	}
	rec, err := s.svc.AppendMessage(r.Context(), body.SessionID, body.MessageType, body.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessionId": rec.SessionID})
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	view, err := s.svc.Transcript(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"session": nil, "messages": []domain.TranscriptEntry{}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": view.Record, "messages": view.Messages})
}

func (s *Server) askKnowledge(w http.ResponseWriter, r *http.Request) {
	var body knowledgeRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	reply, err := s.svc.Ask(r.Context(), body.SessionID, body.Query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(reply.Diff)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) assist(w http.ResponseWriter, r *http.Request) {
	var body assistRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	var (
		res knowledge.Result
		err error
	)
	switch {
	case body.Type == "knowledge":
		res, err = s.svc.Knowledge().Lookup(r.Context(), body.Query)
	case body.Type == "enhanced" && body.Context != nil:
		res, err = s.svc.Enhance(r.Context(), knowledge.EnhanceRequest{
			Answer:          body.Query,
			QuestionContext: body.Context.QuestionContext,
			History:         body.Context.ConversationHistory,
		})
	default:
		writeError(w, http.StatusBadRequest, "invalid request type or missing context")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": res.Text, "source": res.Source, "success": true})
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g := s.svc.Engine().Graph()
	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(graph.GenerateMermaid(g, nil)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": g.Entry(), "nodes": g.Nodes()})
}
