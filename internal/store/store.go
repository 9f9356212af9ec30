package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// tokenKey is the single fixed key the access token is stored under
const tokenKey = "github_token"

// Store wraps the client-side SQLite database. It holds the only durable
// state the client has: the access token and pending OAuth state records.
type Store struct {
	*sql.DB
	dbPath string
}

// Init initializes the database connection and runs migrations
func Init(dbPath string) (*Store, error) {
	// Ensure data directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := &Store{sqlDB, dbPath}

	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return s, nil
}

// migrate runs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			key TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS oauth_states (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SaveToken stores the access token, replacing any previous one so the
// client holds at most one token at a time
func (s *Store) SaveToken(token string) error {
	_, err := s.Exec(
		`INSERT INTO tokens (key, token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		tokenKey, token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Token returns the stored access token, or "" when none is stored
func (s *Store) Token() (string, error) {
	var token string
	err := s.QueryRow(`SELECT token FROM tokens WHERE key = ?`, tokenKey).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the stored access token. Deleting a token that is
// not there is not an error.
func (s *Store) DeleteToken() error {
	if _, err := s.Exec(`DELETE FROM tokens WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// PutState records a pending OAuth state so the callback can verify it
// was issued here
func (s *Store) PutState(id string, expiresAt time.Time) error {
	_, err := s.Exec(
		`INSERT INTO oauth_states (id, created_at, expires_at) VALUES (?, ?, ?)`,
		id, time.Now(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record oauth state: %w", err)
	}
	return nil
}

// ConsumeState deletes the state record and reports whether it existed
// and had not expired. A state can only ever be consumed once.
func (s *Store) ConsumeState(id string) (bool, error) {
	var expiresAt time.Time
	err := s.QueryRow(`SELECT expires_at FROM oauth_states WHERE id = ?`, id).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up oauth state: %w", err)
	}

	if _, err := s.Exec(`DELETE FROM oauth_states WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	return time.Now().Before(expiresAt), nil
}

// PruneExpiredStates removes state records past their expiry
func (s *Store) PruneExpiredStates() error {
	if _, err := s.Exec(`DELETE FROM oauth_states WHERE expires_at < ?`, time.Now()); err != nil {
		return fmt.Errorf("failed to prune oauth states: %w", err)
	}
	return nil
}
