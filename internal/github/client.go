package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gitgate/internal/config"
)

// ErrUnauthorized is returned when GitHub rejects the presented token
var ErrUnauthorized = errors.New("github rejected the token")

// Client handles communication with the GitHub OAuth and REST endpoints
type Client struct {
	webURL     string // https://github.com, overridable for tests
	apiURL     string // https://api.github.com, overridable for tests
	httpClient *http.Client
}

// NewClient creates a new GitHub API client
func NewClient(cfg config.GitHub) *Client {
	return &Client{
		webURL: cfg.WebURL,
		apiURL: cfg.APIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExchangeRequest is the payload sent to the GitHub token endpoint
type ExchangeRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
}

// TokenResponse is the GitHub token endpoint response. On a rejected code
// GitHub still answers 200 with an error field instead of access_token.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// User is the GitHub user object, trimmed to the fields we render
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Email is one entry of the GitHub email list
type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Repo is a GitHub repository, trimmed to the fields we render
type Repo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
}

// ExchangeCode exchanges an authorization code for an access token and
// returns the provider's status code and raw body so callers can pass
// the response through verbatim.
func (c *Client) ExchangeCode(ctx context.Context, exchange ExchangeRequest) (int, []byte, error) {
	jsonData, err := json.Marshal(exchange)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webURL+"/login/oauth/access_token", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read token response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// setBearerAuth sets the bearer token header for resource API requests
func setBearerAuth(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

// GetUser fetches the user owning the token. A non-OK provider response
// is reported as ErrUnauthorized; transport and decode failures are
// returned as-is so callers can tell the two apart.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBearerAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user endpoint returned status %d: %w", resp.StatusCode, ErrUnauthorized)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	return &user, nil
}

// GetEmails fetches the email records for the token's user
func (c *Client) GetEmails(ctx context.Context, token string) ([]Email, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/user/emails", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBearerAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emails endpoint returned status %d: %w", resp.StatusCode, ErrUnauthorized)
	}

	var emails []Email
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("failed to decode emails response: %w", err)
	}

	return emails, nil
}

// GetUserReposRaw fetches the token user's repositories and returns the
// raw JSON body for verbatim passthrough
func (c *Client) GetUserReposRaw(ctx context.Context, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/user/repos", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBearerAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repositories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("repos endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read repos response: %w", err)
	}

	return body, nil
}

// PrimaryEmail returns the address flagged primary, or "" when none is
func PrimaryEmail(emails []Email) string {
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	return ""
}

// MergePrimaryEmail resolves the user's email from the email list. The
// profile endpoint does not expose the address directly, so whatever it
// carried is replaced by the primary entry, or cleared when none exists.
func MergePrimaryEmail(user *User, emails []Email) {
	user.Email = PrimaryEmail(emails)
}
