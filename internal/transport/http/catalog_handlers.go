package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
)

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	audience := domain.Audience(r.URL.Query().Get("audience"))
	if audience == "" {
		audience = domain.AudienceGeneral
	}
	quizzes, err := h.catalog.List(r.Context(), audience)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleListMyQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.ListByCreator(r.Context(), requestUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.catalog.Get(r.Context(), requestUser(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in app.CreateQuizInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidState)
		return
	}
	quiz, err := h.catalog.Create(r.Context(), requestUser(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) handlePublishQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.catalog.Publish(r.Context(), requestUser(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.catalog.Questions(r.Context(), requestUser(r), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidState)
		return
	}
	question, err := h.catalog.AddQuestion(r.Context(), requestUser(r), chi.URLParam(r, "quizID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidState)
		return
	}
	question, err := h.catalog.UpdateQuestion(r.Context(), requestUser(r), chi.URLParam(r, "quizID"), chi.URLParam(r, "questionID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.DeleteQuestion(r.Context(), requestUser(r), chi.URLParam(r, "quizID"), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
