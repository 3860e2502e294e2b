package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	secret := "test-secret"

	token, err := GenerateJWT(secret, "buyer-7", "buyer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != "buyer-7" {
		t.Errorf("user id = %q, want buyer-7", claims.UserID)
	}
	if claims.Role != "buyer" {
		t.Errorf("role = %q, want buyer", claims.Role)
	}
	if claims.Issuer != "spaan-payments" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT("right-secret", "buyer-7", "buyer", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("wrong-secret", token); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	claims := Claims{
		UserID: "buyer-7",
		Role:   "buyer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret", token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	if _, err := ParseJWT("secret", "not.a.token"); err == nil {
		t.Error("malformed token must be rejected")
	}
}
