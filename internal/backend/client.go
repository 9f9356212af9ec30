package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitgate/internal/github"
)

// Client talks to the gitgate server's own API: the token exchange
// endpoint and the token-gated proxy endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given server base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExchangePayload is the body sent to the exchange endpoint. The client
// secret stays on the server; only the code and redirect URI travel.
type ExchangePayload struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// ProfileResponse is the shape of the profile proxy endpoint response
type ProfileResponse struct {
	Message string      `json:"message"`
	User    github.User `json:"user"`
}

// ExchangeCode sends an authorization code to the server and returns the
// provider token response the server passed through
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*github.TokenResponse, error) {
	jsonData, err := json.Marshal(ExchangePayload{Code: code, RedirectURI: redirectURI})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exchange payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login/oauth/access_token", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach exchange endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("exchange endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var token github.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &token, nil
}

// FetchProfile fetches the protected profile data through the proxy
func (c *Client) FetchProfile(ctx context.Context, token string) (*ProfileResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("profile endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var profile ProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}

	return &profile, nil
}

// FetchRepos fetches the token user's repositories through the proxy
func (c *Client) FetchRepos(ctx context.Context, token string) ([]github.Repo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user/repos", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repositories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("repos endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var repos []github.Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("failed to decode repos response: %w", err)
	}

	return repos, nil
}
