package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/platform/config"
)

var (
	// ErrInvalidToken はトークンの署名・形式・クレームが不正な場合に返却されます。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired はトークンの有効期限切れです。
	ErrTokenExpired = errors.New("token has expired")
)

// Claims はアクセストークンのクレームです。subject がユーザー ID です。
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Validator は HMAC 署名の JWT を検証して操作主体へ変換します。
type Validator struct {
	signingKey []byte
	parser     *jwt.Parser
}

// NewValidator は Validator を生成します。issuer と audience は設定されている場合のみ検証します。
func NewValidator(cfg config.AuthConfig) *Validator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Validator{
		signingKey: []byte(cfg.SigningKey),
		parser:     jwt.NewParser(opts...),
	}
}

// ValidateToken はトークンを検証し、subject とロールから Actor を返します。
func (v *Validator) ValidateToken(tokenString string) (actor.Actor, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return actor.Actor{}, ErrTokenExpired
		}
		return actor.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return actor.Actor{}, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return actor.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role := actor.Role(claims.Role)
	if !role.IsValid() {
		return actor.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return actor.Actor{ID: subject, Role: role}, nil
}

type contextKeyActor struct{}

// WithActor は認証済みの操作主体をコンテキストへ格納します。
func WithActor(ctx context.Context, act actor.Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, act)
}

// ActorFromContext はコンテキストから操作主体を取り出します。
func ActorFromContext(ctx context.Context) (actor.Actor, bool) {
	act, ok := ctx.Value(contextKeyActor{}).(actor.Actor)
	return act, ok
}
