package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gitgate/internal/backend"
	"github.com/gitgate/internal/config"
	"github.com/gitgate/internal/github"
	gitgatehttp "github.com/gitgate/internal/http"
	"github.com/gitgate/internal/store"
)

// newProvider fakes the GitHub web and API endpoints on one server
func newProvider(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login/oauth/access_token":
			var req struct {
				ClientID     string `json:"client_id"`
				ClientSecret string `json:"client_secret"`
				Code         string `json:"code"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode exchange request: %v", err)
			}
			if req.ClientSecret != "secret456" {
				t.Errorf("client_secret = %q, want server-injected secret", req.ClientSecret)
			}
			if req.Code == "code123" {
				w.Write([]byte(`{"access_token":"tok123","token_type":"bearer"}`))
			} else {
				w.Write([]byte(`{"error":"bad_verification_code"}`))
			}
		case "/user":
			if r.Header.Get("Authorization") != "Bearer tok123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"login":"alice","name":"Alice A"}`))
		case "/user/emails":
			w.Write([]byte(`[{"email":"a@x.com","primary":false},{"email":"b@x.com","primary":true}]`))
		case "/user/repos":
			w.Write([]byte(`[{"name":"one","html_url":"https://github.com/alice/one"}]`))
		default:
			t.Errorf("unexpected provider path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// newTestManager wires a manager to a fake provider through a real
// gitgate server
func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()

	provider := newProvider(t)

	cfg := &config.Config{
		Environment: "production",
		GitHub: config.GitHub{
			ClientID:     "id123",
			ClientSecret: "secret456",
			WebURL:       provider.URL,
			APIURL:       provider.URL,
		},
		Client: config.Client{
			Origin:      "http://localhost:3000",
			StateSecret: "state-secret",
		},
	}

	server := httptest.NewServer(gitgatehttp.NewServer(cfg, github.NewClient(cfg.GitHub)).Handler())
	t.Cleanup(server.Close)
	cfg.Client.BackendURL = server.URL

	st, err := store.Init(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("store.Init() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return NewManager(cfg, st, github.NewClient(cfg.GitHub), backend.NewClient(server.URL), nil), st
}

// login drives LoginURL and returns the state GitHub would echo back
func login(t *testing.T, m *Manager) string {
	t.Helper()

	authURL, err := m.LoginURL()
	if err != nil {
		t.Fatalf("LoginURL() error = %v", err)
	}

	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("invalid auth URL %q: %v", authURL, err)
	}
	return u.Query().Get("state")
}

func TestLoginURLShape(t *testing.T) {
	m, _ := newTestManager(t)

	authURL, err := m.LoginURL()
	if err != nil {
		t.Fatalf("LoginURL() error = %v", err)
	}

	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("invalid auth URL: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/login/oauth/authorize") {
		t.Errorf("path = %q, want authorize endpoint", u.Path)
	}
	q := u.Query()
	if q.Get("client_id") != "id123" {
		t.Errorf("client_id = %q, want id123", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://localhost:3000/auth/callback" {
		t.Errorf("redirect_uri = %q, want origin-derived callback", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "user:email" {
		t.Errorf("scope = %q, want user:email", q.Get("scope"))
	}
	if q.Get("state") == "" {
		t.Error("state parameter is empty")
	}
	if m.Status() != AwaitingRedirect {
		t.Errorf("status = %v, want AwaitingRedirect", m.Status())
	}
}

func TestLoginURLWithoutClientID(t *testing.T) {
	m, _ := newTestManager(t)
	m.cfg.GitHub.ClientID = ""

	if _, err := m.LoginURL(); !errors.Is(err, config.ErrMissingOAuthConfig) {
		t.Errorf("LoginURL() error = %v, want ErrMissingOAuthConfig", err)
	}
}

func TestCallbackEstablishesSession(t *testing.T) {
	m, st := newTestManager(t)
	state := login(t, m)

	callback := "http://localhost:3000/auth/callback?code=code123&state=" + url.QueryEscape(state)
	if err := m.HandleCallback(context.Background(), callback); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if m.Status() != Authenticated {
		t.Fatalf("status = %v, want Authenticated", m.Status())
	}
	user := m.User()
	if user == nil {
		t.Fatal("User() = nil after successful callback")
	}
	if user.Login != "alice" || user.Name != "Alice A" {
		t.Errorf("user = %+v, want alice/Alice A", user)
	}
	if user.Email != "b@x.com" {
		t.Errorf("email = %q, want merged primary b@x.com", user.Email)
	}

	token, err := st.Token()
	if err != nil {
		t.Fatalf("store.Token() error = %v", err)
	}
	if token != "tok123" {
		t.Errorf("stored token = %q, want tok123", token)
	}
	if m.Token() != "tok123" {
		t.Errorf("Token() = %q, want tok123", m.Token())
	}
}

func TestCallbackRejectedCodeLeavesNoState(t *testing.T) {
	m, st := newTestManager(t)
	state := login(t, m)

	callback := "http://localhost:3000/auth/callback?code=wrong&state=" + url.QueryEscape(state)
	err := m.HandleCallback(context.Background(), callback)
	if !errors.Is(err, ErrExchangeRejected) {
		t.Fatalf("HandleCallback() error = %v, want ErrExchangeRejected", err)
	}

	if m.Status() != Anonymous {
		t.Errorf("status = %v, want Anonymous", m.Status())
	}
	if m.User() != nil {
		t.Error("User() != nil after rejected exchange")
	}
	token, _ := st.Token()
	if token != "" {
		t.Errorf("stored token = %q, want none after rejected exchange", token)
	}
}

func TestCallbackWithoutCode(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.HandleCallback(context.Background(), "http://localhost:3000/auth/callback?state=whatever")
	if !errors.Is(err, ErrMissingCode) {
		t.Errorf("HandleCallback() error = %v, want ErrMissingCode", err)
	}
}

func TestCallbackRejectsReplayedState(t *testing.T) {
	m, _ := newTestManager(t)
	state := login(t, m)

	callback := "http://localhost:3000/auth/callback?code=code123&state=" + url.QueryEscape(state)
	if err := m.HandleCallback(context.Background(), callback); err != nil {
		t.Fatalf("first HandleCallback() error = %v", err)
	}

	if err := m.HandleCallback(context.Background(), callback); !errors.Is(err, ErrInvalidState) {
		t.Errorf("replayed HandleCallback() error = %v, want ErrInvalidState", err)
	}
}

func TestCallbackRejectsForeignState(t *testing.T) {
	m, st := newTestManager(t)

	err := m.HandleCallback(context.Background(), "http://localhost:3000/auth/callback?code=code123&state=forged")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("HandleCallback() error = %v, want ErrInvalidState", err)
	}
	token, _ := st.Token()
	if token != "" {
		t.Errorf("stored token = %q, want none", token)
	}
}

func TestCallbackCancelledContext(t *testing.T) {
	m, st := newTestManager(t)
	state := login(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callback := "http://localhost:3000/auth/callback?code=code123&state=" + url.QueryEscape(state)
	if err := m.HandleCallback(ctx, callback); err == nil {
		t.Fatal("HandleCallback() error = nil with cancelled context")
	}

	if m.Status() != Anonymous {
		t.Errorf("status = %v, want Anonymous", m.Status())
	}
	token, _ := st.Token()
	if token != "" {
		t.Errorf("stored token = %q, want none after aborted callback", token)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	m, st := newTestManager(t)
	state := login(t, m)

	callback := "http://localhost:3000/auth/callback?code=code123&state=" + url.QueryEscape(state)
	if err := m.HandleCallback(context.Background(), callback); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := m.Logout(); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}

	if m.Status() != Anonymous {
		t.Errorf("status = %v, want Anonymous", m.Status())
	}
	if m.Token() != "" {
		t.Errorf("Token() = %q, want empty", m.Token())
	}
	token, _ := st.Token()
	if token != "" {
		t.Errorf("stored token = %q, want deleted", token)
	}
}

func TestResumeDoesNotAuthenticate(t *testing.T) {
	m, st := newTestManager(t)

	if err := st.SaveToken("tok123"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	if err := m.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	// The token is loaded for use, but a stored token alone never
	// flips the session to authenticated
	if m.Token() != "tok123" {
		t.Errorf("Token() = %q, want tok123", m.Token())
	}
	if m.Status() != Anonymous {
		t.Errorf("status = %v, want Anonymous", m.Status())
	}
	if m.User() != nil {
		t.Error("User() != nil after Resume")
	}
}
