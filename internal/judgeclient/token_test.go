package judgeclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErr "cpenv/pkg/errors"
)

func signedToken(t *testing.T, expiresAt *time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "user"}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newStore(t *testing.T) *TokenStore {
	t.Helper()
	return NewTokenStore(filepath.Join(t.TempDir(), "session", "token"))
}

func TestTokenStore_SaveAndLoad(t *testing.T) {
	s := newStore(t)
	exp := time.Now().Add(time.Hour)
	token := signedToken(t, &exp)

	if err := s.Save(token); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != token {
		t.Fatalf("loaded token differs")
	}
}

func TestTokenStore_LoadMissing(t *testing.T) {
	_, err := newStore(t).Load()
	if !appErr.Is(err, appErr.TokenInvalid) {
		t.Fatalf("expected TokenInvalid, got %v", err)
	}
}

func TestTokenStore_LoadExpired(t *testing.T) {
	s := newStore(t)
	exp := time.Now().Add(-time.Minute)
	if err := s.Save(signedToken(t, &exp)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err := s.Load()
	if !appErr.Is(err, appErr.TokenExpired) {
		t.Fatalf("expected TokenExpired, got %v", err)
	}
}

func TestTokenStore_NoExpiryClaimIsValid(t *testing.T) {
	s := newStore(t)
	if err := s.Save(signedToken(t, nil)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestTokenStore_LoadGarbage(t *testing.T) {
	s := newStore(t)
	if err := s.Save("not-a-jwt"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err := s.Load()
	if !appErr.Is(err, appErr.TokenInvalid) {
		t.Fatalf("expected TokenInvalid, got %v", err)
	}
}

func TestTokenStore_Clear(t *testing.T) {
	s := newStore(t)
	exp := time.Now().Add(time.Hour)
	if err := s.Save(signedToken(t, &exp)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(); err == nil {
		t.Fatal("cleared token must not load")
	}
	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestTokenStore_FilePermissions(t *testing.T) {
	s := newStore(t)
	exp := time.Now().Add(time.Hour)
	if err := s.Save(signedToken(t, &exp)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode = %v, want 0600", info.Mode().Perm())
	}
}
