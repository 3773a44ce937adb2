package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenSchemaVersion guards the persisted token file. A file written by an
// incompatible client version is discarded, never partially read.
const tokenSchemaVersion = 1

type tokenFile struct {
	Version int       `json:"version"`
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// TokenStore persists the bearer token across client restarts as a small
// versioned JSON file.
type TokenStore struct {
	path   string
	logger *zap.Logger
}

// NewTokenStore creates a token store backed by the given file path
func NewTokenStore(path string, logger *zap.Logger) *TokenStore {
	return &TokenStore{path: path, logger: logger}
}

// Load reads the persisted token. A missing, unreadable or
// incompatible-version file yields an empty token, not an error.
func (s *TokenStore) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read token file", zap.Error(err))
		}
		return ""
	}

	var file tokenFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("Discarding unparseable token file", zap.Error(err))
		return ""
	}
	if file.Version != tokenSchemaVersion {
		s.logger.Warn("Discarding token file with unknown schema version",
			zap.Int("version", file.Version))
		return ""
	}
	return file.Token
}

// Save writes the token to disk
func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(tokenFile{
		Version: tokenSchemaVersion,
		Token:   token,
		SavedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the persisted token
func (s *TokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// Expired reports whether a bearer token is a JWT whose expiry has visibly
// passed. Tokens that are not JWTs, or carry no expiry, pass through for the
// server to judge.
func Expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
