package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/gitgate/internal/backend"
	"github.com/gitgate/internal/config"
	"github.com/gitgate/internal/github"
)

// callbackPath is appended to the configured origin to form the OAuth
// redirect URI, mirroring the provider app registration
const callbackPath = "/auth/callback"

// oauthScope is the fixed scope requested on login
const oauthScope = "user:email"

// Status is the client-observed authentication state
type Status int

const (
	// Anonymous means no authenticated user is known to the session
	Anonymous Status = iota
	// AwaitingRedirect means a login URL was issued and the provider
	// redirect has not come back yet
	AwaitingRedirect
	// ExchangingCode means a callback code is being exchanged
	ExchangingCode
	// Authenticated means a full user profile has been resolved
	Authenticated
)

func (s Status) String() string {
	switch s {
	case AwaitingRedirect:
		return "awaiting_redirect"
	case ExchangingCode:
		return "exchanging_code"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// ErrExchangeRejected is returned when the provider answers the code
// exchange without an access token
var ErrExchangeRejected = errors.New("provider rejected the authorization code")

// ErrMissingCode is returned when a callback URL carries no code
var ErrMissingCode = errors.New("callback carries no authorization code")

// Store is the durable client storage consumed by the manager
type Store interface {
	SaveToken(token string) error
	Token() (string, error)
	DeleteToken() error
	PutState(id string, expiresAt time.Time) error
	ConsumeState(id string) (bool, error)
}

// Manager owns the client-side authentication lifecycle: it builds the
// authorization URL, consumes the provider callback, persists the token,
// and resolves the user profile. Only a fully resolved profile flips the
// session to Authenticated; a stored token alone does not.
type Manager struct {
	cfg     *config.Config
	store   Store
	github  *github.Client
	backend *backend.Client
	logger  *slog.Logger

	mu     sync.Mutex
	status Status
	token  string
	user   *github.User
}

// NewManager creates a session manager in the Anonymous state
func NewManager(cfg *config.Config, store Store, gh *github.Client, api *backend.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		github:  gh,
		backend: api,
		logger:  logger,
		status:  Anonymous,
	}
}

// Status returns the current session status
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsAuthenticated reports whether a user profile has been resolved
func (m *Manager) IsAuthenticated() bool {
	return m.Status() == Authenticated
}

// User returns the resolved user profile, or nil when not authenticated
func (m *Manager) User() *github.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Authenticated {
		return nil
	}
	u := *m.user
	return &u
}

// Token returns the access token held in memory, "" when none
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RedirectURI returns the OAuth redirect target derived from the origin
func (m *Manager) RedirectURI() string {
	return m.cfg.Client.Origin + callbackPath
}

// LoginURL builds the provider authorization URL with a fresh single-use
// state parameter. Returns ErrMissingOAuthConfig without any side effect
// when the client ID is not configured.
func (m *Manager) LoginURL() (string, error) {
	if m.cfg.GitHub.ClientID == "" {
		m.logger.Error("github oauth configuration is missing")
		return "", config.ErrMissingOAuthConfig
	}

	state, err := issueState(m.cfg.Client.StateSecret, m.store)
	if err != nil {
		return "", fmt.Errorf("failed to prepare login: %w", err)
	}

	oauthCfg := oauth2.Config{
		ClientID:    m.cfg.GitHub.ClientID,
		RedirectURL: m.RedirectURI(),
		Scopes:      []string{oauthScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.cfg.GitHub.WebURL + "/login/oauth/authorize",
			TokenURL: m.cfg.GitHub.WebURL + "/login/oauth/access_token",
		},
	}

	m.mu.Lock()
	m.status = AwaitingRedirect
	m.mu.Unlock()

	return oauthCfg.AuthCodeURL(state), nil
}

// HandleCallback consumes a provider redirect URL: it validates the
// state, exchanges the code through the backend, persists the token, and
// resolves the user profile. Any failure leaves the session in its prior
// unauthenticated state with no partial profile exposed. Cancelling ctx
// aborts in-flight provider calls.
func (m *Manager) HandleCallback(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid callback URL: %w", err)
	}

	code := u.Query().Get("code")
	if code == "" {
		return ErrMissingCode
	}

	if err := validateState(m.cfg.Client.StateSecret, u.Query().Get("state"), m.store); err != nil {
		m.logger.Warn("rejecting callback", "error", err)
		return err
	}

	m.mu.Lock()
	m.status = ExchangingCode
	m.mu.Unlock()

	if err := m.establish(ctx, code); err != nil {
		m.mu.Lock()
		m.status = Anonymous
		m.user = nil
		m.mu.Unlock()
		m.logger.Error("failed to establish session", "error", err)
		return err
	}

	return nil
}

// establish runs the exchange and profile resolution
func (m *Manager) establish(ctx context.Context, code string) error {
	token, err := m.backend.ExchangeCode(ctx, code, m.RedirectURI())
	if err != nil {
		return err
	}
	if token.AccessToken == "" {
		if token.Error != "" {
			return fmt.Errorf("%s: %w", token.Error, ErrExchangeRejected)
		}
		return ErrExchangeRejected
	}

	if err := m.store.SaveToken(token.AccessToken); err != nil {
		return err
	}

	user, err := m.github.GetUser(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	emails, err := m.github.GetEmails(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to resolve emails: %w", err)
	}

	github.MergePrimaryEmail(user, emails)

	m.mu.Lock()
	m.token = token.AccessToken
	m.user = user
	m.status = Authenticated
	m.mu.Unlock()

	m.logger.Info("session established", "login", user.Login)
	return nil
}

// Resume loads a previously stored token into memory. It deliberately
// does not mark the session authenticated: a stored token is not proof
// of a resolvable profile and is re-checked on use.
func (m *Manager) Resume() error {
	token, err := m.store.Token()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Logout clears the in-memory session and deletes the stored token.
// Calling it on an already anonymous session is a no-op.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.status = Anonymous
	m.user = nil
	m.token = ""
	m.mu.Unlock()

	return m.store.DeleteToken()
}
