package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/platform/config"
)

const testKey = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func validClaims(role string) Claims {
	now := time.Now()
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5b0c7d8e-0000-4000-8000-000000000001",
			Issuer:    "kms-connect",
			Audience:  jwt.ClaimStrings{"kms-dashboard"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func newTestValidator() *Validator {
	return NewValidator(config.AuthConfig{SigningKey: testKey, Issuer: "kms-connect", Audience: "kms-dashboard"})
}

func TestValidator_ValidateToken_Success(t *testing.T) {
	t.Parallel()

	token := signToken(t, jwt.SigningMethodHS256, []byte(testKey), validClaims("STAFF"))

	act, err := newTestValidator().ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if act.ID != "5b0c7d8e-0000-4000-8000-000000000001" || act.Role != actor.RoleStaff {
		t.Fatalf("unexpected actor %+v", act)
	}
}

func TestValidator_ValidateToken_Errors(t *testing.T) {
	t.Parallel()

	expired := validClaims("ADMIN")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAudience := validClaims("ADMIN")
	wrongAudience.Audience = jwt.ClaimStrings{"other"}

	noSubject := validClaims("ADMIN")
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "expired", token: signToken(t, jwt.SigningMethodHS256, []byte(testKey), expired), wantErr: ErrTokenExpired},
		{name: "wrong key", token: signToken(t, jwt.SigningMethodHS256, []byte("another-key-another-key-another!"), validClaims("ADMIN")), wantErr: ErrInvalidToken},
		{name: "wrong audience", token: signToken(t, jwt.SigningMethodHS256, []byte(testKey), wrongAudience), wantErr: ErrInvalidToken},
		{name: "unknown role", token: signToken(t, jwt.SigningMethodHS256, []byte(testKey), validClaims("ROOT")), wantErr: ErrInvalidToken},
		{name: "missing subject", token: signToken(t, jwt.SigningMethodHS256, []byte(testKey), noSubject), wantErr: ErrInvalidToken},
		{name: "unsigned", token: signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims("ADMIN")), wantErr: ErrInvalidToken},
		{name: "garbage", token: "not-a-token", wantErr: ErrInvalidToken},
	}

	v := newTestValidator()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := v.ValidateToken(tt.token); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestActorContext(t *testing.T) {
	t.Parallel()

	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatal("expected no actor in empty context")
	}

	ctx := WithActor(context.Background(), actor.Actor{ID: "u-1", Role: actor.RoleApplicant})
	act, ok := ActorFromContext(ctx)
	if !ok || act.ID != "u-1" || act.Role != actor.RoleApplicant {
		t.Fatalf("unexpected actor %+v", act)
	}
}
