package auth

import (
	"strings"
	"testing"
	"time"
)

func testTokenService(secret string) TokenService {
	return TokenService{
		Secret:   []byte(secret),
		Issuer:   "kanjifinder-test",
		Duration: time.Hour,
	}
}

func TestSignAndParse(t *testing.T) {
	ts := testTokenService("secret-1")
	u := &User{ID: "u1", Username: "tester", Email: "t@example.com", TokenVersion: 3}

	token, exp, err := ts.Sign(u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Error("expiry not in the future")
	}

	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "tester" || claims.Email != "t@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("token version = %d, want 3", claims.TokenVersion)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := testTokenService("secret-1").Sign(&User{ID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := testTokenService("secret-2").Parse(token); err == nil {
		t.Fatal("token signed with another secret parsed successfully")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	ts := testTokenService("secret-1")
	for _, bad := range []string{"", "not.a.jwt", strings.Repeat("x", 100)} {
		if _, err := ts.Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
	}
}
