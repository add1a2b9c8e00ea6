package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/identity"
	"github.com/Krusherk/ritquiz/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	users := memory.NewUserRepository()
	quizzes := memory.NewQuizRepository()
	results := memory.NewResultRepository()
	attempts := memory.NewAttemptStore()
	admins := identity.NewAllowList([]string{"root@example.com"}, nil)

	h := NewHandler(
		app.NewProfileService(users, admins, log),
		app.NewCatalogService(quizzes),
		app.NewSessionEngine(quizzes, results, attempts, log),
		app.NewLeaderboardService(quizzes, quizzes, results, 50*time.Millisecond, log),
		"test-secret",
		log,
	)
	server := httptest.NewServer(h.Router())
	t.Cleanup(server.Close)
	return server, h
}

func mintToken(t *testing.T, h *Handler, sub, email, name string) string {
	t.Helper()
	_, token, err := h.tokenAuth.Encode(map[string]interface{}{
		"sub": sub,
		"linkedAccounts": []map[string]interface{}{
			{"type": "discord", "email": email, "name": name, "username": name},
		},
	})
	if err != nil {
		t.Fatalf("encode token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, payload
}

func claim(t *testing.T, server *httptest.Server, token, username string) domain.User {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, server.URL+"/v1/me/username", token, map[string]string{"username": username})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("claim %s: status %d: %s", username, resp.StatusCode, payload)
	}
	var user domain.User
	if err := json.Unmarshal(payload, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return user
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, server.URL+"/v1/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestClaimUsernameFlow(t *testing.T) {
	server, h := newTestServer(t)
	token := mintToken(t, h, "discord-1", "alice@example.com", "alice")

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/v1/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me before claim: %d: %s", resp.StatusCode, payload)
	}
	var me meResponse
	if err := json.Unmarshal(payload, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if !me.NeedsUsername || me.User != nil {
		t.Fatalf("expected needsUsername before claim, got %+v", me)
	}

	// Protected routes are gated until the username exists.
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/quizzes", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 before claim, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/me/username", token, map[string]string{"username": "no spaces"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid username, got %d", resp.StatusCode)
	}

	// The availability check is reachable before the claim.
	resp, payload = doJSON(t, http.MethodGet, server.URL+"/v1/usernames/alice/available", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("availability: %d: %s", resp.StatusCode, payload)
	}
	var availability struct {
		Username  string `json:"username"`
		Available bool   `json:"available"`
	}
	_ = json.Unmarshal(payload, &availability)
	if !availability.Available {
		t.Fatalf("expected alice available before claim, got %s", payload)
	}
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/usernames/a!/available", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed username, got %d", resp.StatusCode)
	}

	user := claim(t, server, token, "alice")
	if user.Username != "alice" || user.Role != domain.RolePlayer {
		t.Fatalf("unexpected claimed user: %+v", user)
	}

	other := mintToken(t, h, "discord-2", "bob@example.com", "bob")
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/me/username", other, map[string]string{"username": "ALICE"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for taken username, got %d", resp.StatusCode)
	}

	resp, payload = doJSON(t, http.MethodGet, server.URL+"/v1/usernames/ALICE/available", other, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("availability after claim: %d", resp.StatusCode)
	}
	availability.Available = true
	_ = json.Unmarshal(payload, &availability)
	if availability.Available {
		t.Fatalf("expected ALICE reported taken, got %s", payload)
	}

	resp, payload = doJSON(t, http.MethodGet, server.URL+"/v1/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me after claim: %d", resp.StatusCode)
	}
	me = meResponse{}
	_ = json.Unmarshal(payload, &me)
	if me.NeedsUsername || me.User == nil || me.User.Username != "alice" {
		t.Fatalf("expected resolved user after claim, got %s", payload)
	}
}

func TestQuizLifecycleAndAttemptOverREST(t *testing.T) {
	server, h := newTestServer(t)

	adminToken := mintToken(t, h, "discord-admin", "root@example.com", "root")
	admin := claim(t, server, adminToken, "root")
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected allow-listed admin, got %+v", admin)
	}

	resp, payload := doJSON(t, http.MethodPost, server.URL+"/v1/quizzes", adminToken, app.CreateQuizInput{
		Title:     "Capitals",
		IsGeneral: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create quiz: %d: %s", resp.StatusCode, payload)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if quiz.Status != domain.StatusDraft || quiz.TimerSeconds != 30 {
		t.Fatalf("unexpected created quiz: %+v", quiz)
	}

	// While in draft the quiz is invisible to everyone but its creator.
	strangerToken := mintToken(t, h, "discord-stranger", "stranger@example.com", "stranger")
	claim(t, server, strangerToken, "stranger_one")
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/quizzes/"+quiz.ID, strangerToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for stranger on draft, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/session", strangerToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 loading a draft session, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/publish", adminToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 publishing empty quiz, got %d", resp.StatusCode)
	}

	resp, payload = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/questions", adminToken, app.QuestionInput{
		Text:         "Capital of France?",
		Options:      []string{"Lyon", "Paris"},
		CorrectIndex: 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add question: %d: %s", resp.StatusCode, payload)
	}
	var question domain.Question
	_ = json.Unmarshal(payload, &question)

	resp, payload = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/publish", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: %d: %s", resp.StatusCode, payload)
	}

	// Drafts are invisible to players; now the quiz is live.
	playerToken := mintToken(t, h, "discord-player", "player@example.com", "player")
	claim(t, server, playerToken, "player_one")

	resp, payload = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/session", playerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load session: %d: %s", resp.StatusCode, payload)
	}
	var view app.SessionView
	_ = json.Unmarshal(payload, &view)
	if view.State != app.StateReady {
		t.Fatalf("expected ready session, got %+v", view)
	}

	resp, payload = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/session/start", playerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d: %s", resp.StatusCode, payload)
	}
	view = app.SessionView{}
	_ = json.Unmarshal(payload, &view)
	if view.State != app.StateInProgress || view.CurrentQuestion == nil {
		t.Fatalf("expected in-progress with question, got %s", payload)
	}

	idx := 1
	resp, payload = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/session/answer", playerToken, map[string]interface{}{
		"questionId":  view.CurrentQuestion.ID,
		"optionIndex": idx,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer: %d: %s", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodPost, server.URL+"/v1/quizzes/"+quiz.ID+"/session/next", playerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: %d: %s", resp.StatusCode, payload)
	}
	view = app.SessionView{}
	_ = json.Unmarshal(payload, &view)
	if view.State != app.StateFinished || view.Result == nil || view.Result.Score != 100 {
		t.Fatalf("expected finished with full score, got %s", payload)
	}

	resp, payload = doJSON(t, http.MethodGet, server.URL+"/v1/quizzes/"+quiz.ID+"/leaderboard", playerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: %d: %s", resp.StatusCode, payload)
	}
	var entries []domain.LeaderboardEntry
	_ = json.Unmarshal(payload, &entries)
	if len(entries) != 1 || entries[0].Username != "player_one" || entries[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard: %s", payload)
	}
}

func TestAdminHostManagement(t *testing.T) {
	server, h := newTestServer(t)

	adminToken := mintToken(t, h, "discord-admin", "root@example.com", "root")
	claim(t, server, adminToken, "root")
	playerToken := mintToken(t, h, "discord-player", "player@example.com", "player")
	claim(t, server, playerToken, "player_one")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/v1/admin/hosts", playerToken, map[string]string{"email": "player@example.com"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	resp, payload := doJSON(t, http.MethodPost, server.URL+"/v1/admin/hosts", adminToken, map[string]string{"email": "player@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grant host: %d: %s", resp.StatusCode, payload)
	}
	var user domain.User
	_ = json.Unmarshal(payload, &user)
	if user.Role != domain.RoleHost {
		t.Fatalf("expected host role, got %+v", user)
	}

	resp, payload = doJSON(t, http.MethodDelete, server.URL+"/v1/admin/hosts", adminToken, map[string]string{"email": "player@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke host: %d: %s", resp.StatusCode, payload)
	}
	user = domain.User{}
	_ = json.Unmarshal(payload, &user)
	if user.Role != domain.RolePlayer {
		t.Fatalf("expected player role after revoke, got %+v", user)
	}
}
