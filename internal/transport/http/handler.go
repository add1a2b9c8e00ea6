package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
	"github.com/sirupsen/logrus"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/identity"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	userKey     contextKey = "user"
)

// Handler wires the application services into the REST and WebSocket
// surface.
type Handler struct {
	profiles    *app.ProfileService
	catalog     *app.CatalogService
	sessions    *app.SessionEngine
	leaderboard *app.LeaderboardService
	tokenAuth   *jwtauth.JWTAuth
	log         *logrus.Logger
}

func NewHandler(profiles *app.ProfileService, catalog *app.CatalogService, sessions *app.SessionEngine, leaderboard *app.LeaderboardService, jwtSecret string, log *logrus.Logger) *Handler {
	return &Handler{
		profiles:    profiles,
		catalog:     catalog,
		sessions:    sessions,
		leaderboard: leaderboard,
		tokenAuth:   jwtauth.New("HS256", []byte(jwtSecret), nil),
		log:         log,
	}
}

// Router builds the chi mux with the full route surface.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
			r.Use(h.withIdentity)

			r.Get("/me", h.handleMe)
			r.Post("/me/username", h.handleClaimUsername)
			// Reachable pre-claim; the claim form polls it while typing.
			r.Get("/usernames/{username}/available", h.handleUsernameAvailable)

			r.Group(func(r chi.Router) {
				r.Use(h.withUser)

				r.Get("/quizzes", h.handleListQuizzes)
				r.Get("/quizzes/mine", h.handleListMyQuizzes)
				r.Get("/quizzes/{quizID}", h.handleGetQuiz)
				r.Post("/quizzes", h.handleCreateQuiz)
				r.Post("/quizzes/{quizID}/publish", h.handlePublishQuiz)
				r.Get("/quizzes/{quizID}/questions", h.handleListQuestions)
				r.Post("/quizzes/{quizID}/questions", h.handleAddQuestion)
				r.Put("/quizzes/{quizID}/questions/{questionID}", h.handleUpdateQuestion)
				r.Delete("/quizzes/{quizID}/questions/{questionID}", h.handleDeleteQuestion)

				r.Post("/quizzes/{quizID}/session", h.handleLoadSession)
				r.Get("/quizzes/{quizID}/session", h.handleSessionView)
				r.Delete("/quizzes/{quizID}/session", h.handleDiscardSession)
				r.Post("/quizzes/{quizID}/session/start", h.handleStartSession)
				r.Post("/quizzes/{quizID}/session/answer", h.handleAnswer)
				r.Post("/quizzes/{quizID}/session/next", h.handleAdvance)

				r.Get("/leaderboard", h.handleGlobalLeaderboard)
				r.Get("/quizzes/{quizID}/leaderboard", h.handleQuizLeaderboard)

				r.Group(func(r chi.Router) {
					r.Use(h.requireAdmin)
					r.Post("/admin/hosts", h.handleGrantHost)
					r.Delete("/admin/hosts", h.handleRevokeHost)
				})
			})
		})

		// WebSocket clients cannot set headers, so the token rides the
		// query string here.
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(h.tokenAuth, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader))
			r.Use(jwtauth.Authenticator)
			r.Get("/quizzes/{quizID}/leaderboard/ws", h.ServeLeaderboardWS)
		})
	})
	return r
}

// withIdentity decodes the verified JWT claims into an identity.Identity.
func (h *Handler) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromRequest(r)
		if err != nil {
			writeError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// withUser resolves the identity to an application user; identities that
// have not claimed a username yet are turned away with a dedicated code.
func (h *Handler) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := r.Context().Value(identityKey).(identity.Identity)
		outcome, err := h.profiles.Resolve(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if outcome.NeedsUsername {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "username required", "code": "username_required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, outcome.User)))
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := r.Context().Value(userKey).(domain.User)
		if user.Role != domain.RoleAdmin {
			writeError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFromRequest(r *http.Request) (identity.Identity, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return identity.Identity{}, err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return identity.Identity{}, domain.ErrUnauthenticated
	}
	id := identity.Identity{ID: sub}
	if raw, ok := claims["linkedAccounts"]; ok {
		// Claims come back as generic JSON values; a round-trip is the
		// simplest faithful decode.
		if data, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(data, &id.LinkedAccounts)
		}
	}
	return id, nil
}

func requestUser(r *http.Request) domain.User {
	user, _ := r.Context().Value(userKey).(domain.User)
	return user
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrQuestionLocked),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrOptionOutOfRange),
		errors.Is(err, domain.ErrAnswerRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
