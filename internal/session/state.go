package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// stateTTL bounds how long an authorization attempt may take before its
// state parameter is rejected on callback
const stateTTL = 10 * time.Minute

// ErrInvalidState is returned when a callback carries a state parameter
// that is missing, malformed, expired, or already used
var ErrInvalidState = errors.New("invalid oauth state")

// stateStore is the subset of the client store the state parameter needs
type stateStore interface {
	PutState(id string, expiresAt time.Time) error
	ConsumeState(id string) (bool, error)
}

// issueState mints a signed, single-use state parameter and records its
// ID so the callback can verify the attempt originated here
func issueState(secret string, store stateStore) (string, error) {
	id := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(stateTTL)

	claims := jwt.StandardClaims{
		Id:        id,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}

	if err := store.PutState(id, expiresAt); err != nil {
		return "", err
	}

	return signed, nil
}

// validateState checks the signature and expiry of a callback state and
// consumes its record. A second validation of the same state fails.
func validateState(secret, state string, store stateStore) error {
	if state == "" {
		return fmt.Errorf("state parameter is missing: %w", ErrInvalidState)
	}

	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("state verification failed: %v: %w", err, ErrInvalidState)
	}

	ok, err := store.ConsumeState(claims.Id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("state is unknown or expired: %w", ErrInvalidState)
	}

	return nil
}
