package auth

import (
	"testing"
	"time"
)

func testPrincipal() Principal {
	return Principal{
		UserID:         42,
		Email:          "lead@example.com",
		Role:           RoleAdmin,
		OrganizationID: 7,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken(testPrincipal(), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	principal, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if principal != testPrincipal() {
		t.Fatalf("principal mismatch: %+v", principal)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken(testPrincipal(), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseAndValidate(token + "x"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndValidate(""); err != ErrInvalidToken {
		t.Fatalf("empty token should be invalid, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken(testPrincipal(), time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expired token should be invalid, got %v", err)
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken(testPrincipal(), time.Minute); err == nil {
		t.Fatalf("expected error without configured secret")
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	if _, err := GenerateToken(Principal{Role: RoleAdmin}, time.Minute); err == nil {
		t.Fatalf("missing user id should fail")
	}
	if _, err := GenerateToken(Principal{UserID: 1, Role: Role("root")}, time.Minute); err == nil {
		t.Fatalf("unknown role should fail")
	}
	if _, err := GenerateToken(testPrincipal(), 0); err == nil {
		t.Fatalf("zero ttl should fail")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter2!"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatalf("wrong password should fail verification")
	}
}
