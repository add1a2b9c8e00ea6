package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/Krusherk/ritquiz/internal/domain"
)

func (h *Handler) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Load(r.Context(), chi.URLParam(r, "quizID"), requestUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSessionView(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.View(r.Context(), chi.URLParam(r, "quizID"), requestUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Start(r.Context(), chi.URLParam(r, "quizID"), requestUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID  string `json:"questionId"`
		OptionIndex *int   `json:"optionIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" || req.OptionIndex == nil {
		writeError(w, domain.ErrOptionOutOfRange)
		return
	}
	view, err := h.sessions.SelectAnswer(r.Context(), chi.URLParam(r, "quizID"), requestUser(r).ID, req.QuestionID, *req.OptionIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Advance(r.Context(), chi.URLParam(r, "quizID"), requestUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Discard(r.Context(), chi.URLParam(r, "quizID"), requestUser(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQuizLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.PerQuiz(r.Context(), chi.URLParam(r, "quizID"), limitParam(r, 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.Global(r.Context(), limitParam(r, 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
