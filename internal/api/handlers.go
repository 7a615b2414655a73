package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/review"
	"github.com/yuxiji/scenetalk/internal/scoring"
)

func (s *server) listSubScenes(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.SubScenes(r.Context(), r.URL.Query().Get("sceneId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subScenes": subs})
}

func (s *server) getSubScene(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.SubScene(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) practice(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("qaIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	qs, err := s.svc.Practice(r.Context(), chi.URLParam(r, "id"), ids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

type dialogueRequest struct {
	UserMessage         string       `json:"userMessage" validate:"required"`
	CurrentQAIndex      int          `json:"currentQaIndex" validate:"gte=0"`
	ConversationHistory []judge.Line `json:"conversationHistory"`
	RunID               string       `json:"runId"`
	Attempt             int          `json:"attempt" validate:"gte=0"`
}

func (s *server) aiDialogue(w http.ResponseWriter, r *http.Request) {
	var req dialogueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		writeErr(w, http.StatusBadRequest, "invalid UserMessage: failed required")
		return
	}
	turn, err := s.svc.Advance(r.Context(), learning.AdvanceRequest{
		SubSceneID:     chi.URLParam(r, "id"),
		UserMessage:    req.UserMessage,
		CurrentQAIndex: req.CurrentQAIndex,
		History:        req.ConversationHistory,
		RunID:          req.RunID,
		Attempt:        req.Attempt,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

type skipRequest struct {
	CurrentQAIndex int    `json:"currentQaIndex" validate:"gte=0"`
	RunID          string `json:"runId"`
}

func (s *server) skip(w http.ResponseWriter, r *http.Request) {
	var req skipRequest
	if !s.decode(w, r, &req) {
		return
	}
	turn, err := s.svc.Skip(r.Context(), chi.URLParam(r, "id"), req.RunID, req.CurrentQAIndex)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

type scoreRequest struct {
	Results []scoring.Result `json:"results" validate:"dive"`
}

func (s *server) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	for _, res := range req.Results {
		switch res.Status {
		case scoring.StatusFluent, scoring.StatusPrompted, scoring.StatusFailed:
		default:
			writeErr(w, http.StatusBadRequest, "invalid status "+string(res.Status)+" for "+res.QAID)
			return
		}
	}
	rep, err := s.svc.Score(r.Context(), chi.URLParam(r, "id"), req.Results)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type reviewRequest struct {
	DialogueHistory []review.Entry `json:"dialogueHistory"`
}

// review always answers 200; a degraded run yields no highlights.
func (s *server) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !s.decode(w, r, &req) {
		return
	}
	hs := s.svc.Review(r.Context(), chi.URLParam(r, "id"), req.DialogueHistory)
	writeJSON(w, http.StatusOK, map[string]any{"highlights": hs})
}

type speakingRequest struct {
	UserText   string `json:"userText"`
	TargetText string `json:"targetText" validate:"required"`
}

func (s *server) speaking(w http.ResponseWriter, r *http.Request) {
	var req speakingRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Speaking(req.UserText, req.TargetText))
}

func (s *server) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.LoadRawProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": p})
}

// putProgress stores the body as the sub-scene's snapshot. The body is
// opaque apart from subSceneId, so client UI state round-trips.
func (s *server) putProgress(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.svc.SaveRawProgress(r.Context(), id, raw); err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.svc.LoadRawProgress(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": saved})
}
