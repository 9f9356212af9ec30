package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	ServerAddress string     `yaml:"server_address"`
	Environment   string     `yaml:"environment"`
	GitHub        GitHub     `yaml:"github"`
	Client        Client     `yaml:"client"`
	CORS          CORSConfig `yaml:"cors"`
}

// GitHub holds the OAuth app credentials and provider endpoints.
// WebURL/APIURL exist so tests can point the exchange and verification
// calls at a local server; they default to the real provider.
type GitHub struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	WebURL       string `yaml:"web_url"`
	APIURL       string `yaml:"api_url"`
}

// Client holds configuration for the client-side session manager
type Client struct {
	BackendURL  string `yaml:"backend_url"`  // Base URL of the gitgate server
	Origin      string `yaml:"origin"`       // Origin used to derive the OAuth redirect URI
	DataPath    string `yaml:"data_path"`    // SQLite file for the token store
	StateSecret string `yaml:"state_secret"` // HMAC secret for the OAuth state parameter
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ErrMissingOAuthConfig is returned when an operation needs the GitHub
// client credentials and they are not set.
var ErrMissingOAuthConfig = errors.New("github oauth configuration is missing")

const (
	defaultGitHubWebURL = "https://github.com"
	defaultGitHubAPIURL = "https://api.github.com"
)

// Load loads configuration from an optional YAML file, then overrides
// every value that is also set in the environment. The file path comes
// from GITGATE_CONFIG and is skipped silently when unset.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: ":3001",
		Environment:   "development",
		GitHub: GitHub{
			WebURL: defaultGitHubWebURL,
			APIURL: defaultGitHubAPIURL,
		},
		Client: Client{
			BackendURL: "http://localhost:3001",
			Origin:     "http://localhost:3000",
			DataPath:   "./data/gitgate.db",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}

	if path := os.Getenv("GITGATE_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// loadFile merges a YAML config file into cfg
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides config values from environment variables
func applyEnv(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	cfg.GitHub.ClientID = getEnv("GITHUB_CLIENT_ID", cfg.GitHub.ClientID)
	cfg.GitHub.ClientSecret = getEnv("GITHUB_CLIENT_SECRET", cfg.GitHub.ClientSecret)
	cfg.GitHub.WebURL = getEnv("GITHUB_WEB_URL", cfg.GitHub.WebURL)
	cfg.GitHub.APIURL = getEnv("GITHUB_API_URL", cfg.GitHub.APIURL)

	cfg.Client.BackendURL = getEnv("GITGATE_BACKEND_URL", cfg.Client.BackendURL)
	cfg.Client.Origin = getEnv("GITGATE_ORIGIN", cfg.Client.Origin)
	cfg.Client.DataPath = getEnv("GITGATE_DATA_PATH", cfg.Client.DataPath)
	cfg.Client.StateSecret = getEnv("GITGATE_STATE_SECRET", cfg.Client.StateSecret)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = parseCommaSeparatedList(origins)
	}
}

// HasOAuthCredentials reports whether both GitHub credentials are set
func (g GitHub) HasOAuthCredentials() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// parseCommaSeparatedList splits a comma-separated string into a slice
func parseCommaSeparatedList(s string) []string {
	items := strings.Split(s, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}

	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
