package jwt

import (
	"testing"
	"time"

	"slotbooking/backend/internal/models"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", 30*time.Minute)
	email := "alice@example.com"
	token, err := m.IssueToken(models.User{ID: 7, Email: &email, Role: models.RoleNormal})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.Subject != "7" || claims.Role != "normal" || claims.Email != email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("unexpected lifetime %v", got)
	}
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m := NewManager("secret", time.Minute)
	token, err := m.IssueToken(models.User{ID: 1, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := NewManager("other", time.Minute).ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := m.ParseToken(token); err == nil {
		t.Fatal("expired token must be rejected")
	}
	if _, err := m.ParseToken("not-a-token"); err == nil {
		t.Fatal("garbage must be rejected")
	}
}
