package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/pkg/options"
)

// Claims is the token payload issued by the account service. The tracking
// core only consumes the resolved identity; issuing credentials is out of
// scope here.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed bearer tokens.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ core.TokenVerifier = (*JWTVerifier)(nil)

// NewJWTVerifier builds a verifier from auth options.
func NewJWTVerifier(opts *options.AuthOptions) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(opts.JWTSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(opts.Leeway),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify resolves the identity behind a bearer token. Any failure maps to
// ErrUnauthenticated; callers terminate the connection on it.
func (v *JWTVerifier) Verify(_ context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, fmt.Errorf("%w: missing token", core.ErrUnauthenticated)
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %s", core.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return model.Identity{}, fmt.Errorf("%w: invalid token", core.ErrUnauthenticated)
	}

	role := model.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return model.Identity{}, fmt.Errorf("%w: malformed claims", core.ErrUnauthenticated)
	}

	return model.Identity{
		SubjectID: claims.Subject,
		Role:      role,
	}, nil
}
