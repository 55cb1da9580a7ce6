package auth

import (
	"testing"
	"time"
)

func newManager(t *testing.T, secret string) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(secret, "go_library", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() failed: %v", err)
	}
	return m
}

func TestGenerateAndParseToken(t *testing.T) {
	m := newManager(t, "test-secret-key")

	token, issued, err := m.Generate(7, "reader", "user")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if token == "" {
		t.Error("Expected non-empty token")
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if claims.UID != 7 {
		t.Errorf("Expected UID 7, got %d", claims.UID)
	}
	if claims.Username != "reader" {
		t.Errorf("Expected username reader, got %s", claims.Username)
	}
	if claims.Role != "user" {
		t.Errorf("Expected role user, got %s", claims.Role)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Errorf("Expected token ID %q to round-trip, got %q", issued.ID, claims.ID)
	}
}

func TestGenerate_UniqueTokenIDs(t *testing.T) {
	m := newManager(t, "test-secret-key")

	_, a, _ := m.Generate(1, "a", "user")
	_, b, _ := m.Generate(1, "a", "user")
	if a.ID == b.ID {
		t.Error("Expected distinct token IDs")
	}
}

func TestParse_InvalidToken(t *testing.T) {
	m := newManager(t, "test-secret-key")

	if _, err := m.Parse("invalid.token.string"); err == nil {
		t.Error("Parse() should fail for invalid token")
	}
}

func TestParse_ExpiredToken(t *testing.T) {
	m := newManager(t, "test-secret-key")
	m.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	token, _, err := m.Generate(1, "reader", "user")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	m.now = time.Now
	_, err = m.Parse(token)
	if err == nil {
		t.Fatal("Parse() should fail for expired token")
	}
	if !IsExpired(err) {
		t.Errorf("Expected expired error, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, _, err := newManager(t, "secret-1").Generate(1, "reader", "user")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if _, err := newManager(t, "secret-2").Parse(token); err == nil {
		t.Error("Parse() should fail when secret is different")
	}
}

func TestNewTokenManager_MissingSecret(t *testing.T) {
	if _, err := NewTokenManager("", "go_library", time.Hour); err != ErrSecretMissing {
		t.Errorf("Expected ErrSecretMissing, got %v", err)
	}
}
