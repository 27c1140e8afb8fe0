package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/pkg/options"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	var key any = []byte(secret)
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func newVerifier() *JWTVerifier {
	opts := options.NewAuthOptions()
	opts.JWTSecret = testSecret
	return NewJWTVerifier(opts)
}

func TestVerify(t *testing.T) {
	now := time.Now()

	valid := func(role string) jwt.MapClaims {
		return jwt.MapClaims{
			"sub":  "user-1",
			"role": role,
			"exp":  now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name     string
		token    string
		wantRole model.Role
		wantErr  bool
	}{
		{
			name:     "valid passenger token",
			token:    signToken(t, testSecret, jwt.SigningMethodHS256, valid("PASSENGER")),
			wantRole: model.RolePassenger,
		},
		{
			name:     "valid driver token",
			token:    signToken(t, testSecret, jwt.SigningMethodHS256, valid("DRIVER")),
			wantRole: model.RoleDriver,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
		{
			name:    "garbage token",
			token:   "not.a.jwt",
			wantErr: true,
		},
		{
			name:    "wrong secret",
			token:   signToken(t, "other-secret", jwt.SigningMethodHS256, valid("DRIVER")),
			wantErr: true,
		},
		{
			name: "expired token",
			token: signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "user-1", "role": "DRIVER", "exp": now.Add(-time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name: "missing expiry",
			token: signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "user-1", "role": "DRIVER",
			}),
			wantErr: true,
		},
		{
			name: "missing subject",
			token: signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
				"role": "DRIVER", "exp": now.Add(time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name:    "unknown role",
			token:   signToken(t, testSecret, jwt.SigningMethodHS256, valid("SUPERUSER")),
			wantErr: true,
		},
	}

	v := newVerifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := v.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, core.ErrUnauthenticated) {
					t.Fatalf("error %v is not ErrUnauthenticated", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if identity.SubjectID != "user-1" {
				t.Fatalf("subject = %q, want user-1", identity.SubjectID)
			}
			if identity.Role != tt.wantRole {
				t.Fatalf("role = %q, want %q", identity.Role, tt.wantRole)
			}
		})
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	// HS384 signature with the right secret must still be refused.
	token := signToken(t, testSecret, jwt.SigningMethodHS384, jwt.MapClaims{
		"sub": "user-1", "role": "DRIVER", "exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := newVerifier().Verify(context.Background(), token); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
