package judgeclient

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErr "cpenv/pkg/errors"
)

// TokenStore keeps the judge session token on disk between invocations.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store persisting to the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load returns the stored token, verifying it has not expired. The signature
// is not checked here; only the server can do that. Expiry is decided locally
// so a stale token fails fast instead of producing a confusing 401.
func (s *TokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", appErr.New(appErr.TokenInvalid).WithMessage("no stored session token")
		}
		return "", fmt.Errorf("read token file failed: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", appErr.New(appErr.TokenInvalid).WithMessage("stored session token is empty")
	}
	if expired, err := tokenExpired(raw); err != nil {
		return "", err
	} else if expired {
		return "", appErr.New(appErr.TokenExpired)
	}
	return raw, nil
}

// Save persists a token, creating the parent directory when needed.
func (s *TokenStore) Save(token string) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir failed: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file failed: %w", err)
	}
	return nil
}

// Clear removes the stored token. A missing file is not an error.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file failed: %w", err)
	}
	return nil
}

// tokenExpired checks the exp claim without verifying the signature.
func tokenExpired(raw string) (bool, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return false, appErr.New(appErr.TokenInvalid).WithMessagef("parse session token failed: %v", err)
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}
	return time.Now().After(claims.ExpiresAt.Time), nil
}
