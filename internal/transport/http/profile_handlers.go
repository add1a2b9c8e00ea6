package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/identity"
)

type meResponse struct {
	User          *domain.User `json:"user,omitempty"`
	NeedsUsername bool         `json:"needsUsername"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := r.Context().Value(identityKey).(identity.Identity)
	outcome, err := h.profiles.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := meResponse{NeedsUsername: outcome.NeedsUsername}
	if !outcome.NeedsUsername {
		resp.User = &outcome.User
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	available, err := h.profiles.UsernameAvailable(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":  username,
		"available": available,
	})
}

func (h *Handler) handleClaimUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidUsername)
		return
	}
	id, _ := r.Context().Value(identityKey).(identity.Identity)
	user, err := h.profiles.Claim(r.Context(), id, req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGrantHost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, domain.ErrUserNotFound)
		return
	}
	user, err := h.profiles.GrantRole(r.Context(), req.Email, domain.RoleHost)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleRevokeHost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, domain.ErrUserNotFound)
		return
	}
	user, err := h.profiles.RevokeHost(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
