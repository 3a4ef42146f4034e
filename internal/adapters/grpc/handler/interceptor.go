package handler

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/platform/auth"
)

// TokenValidator はベアラートークンを検証して操作主体を返します。
type TokenValidator interface {
	ValidateToken(token string) (actor.Actor, error)
}

const healthServicePrefix = "/grpc.health.v1.Health/"

// UnaryAuthInterceptor は authorization メタデータのベアラートークンを検証します。ヘルスチェックは対象外です。
func UnaryAuthInterceptor(validator TokenValidator, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		token := bearerToken(ctx)
		if token == "" {
			logger.WarnContext(ctx, "unauthenticated grpc call - missing token", "method", info.FullMethod)
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		act, err := validator.ValidateToken(token)
		if err != nil {
			logger.WarnContext(ctx, "unauthenticated grpc call - invalid token", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(auth.WithActor(ctx, act), req)
	}
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token, found := strings.CutPrefix(v, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// UnaryLoggingInterceptor は呼び出し結果をログに出力し、パニックを Internal に変換します。
func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "grpc handler panicked",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				resp, err = nil, status.Error(codes.Internal, internalMessage)
			}

			code := status.Code(err)
			attrs := []any{
				"method", info.FullMethod,
				"code", code.String(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch code {
			case codes.OK:
				logger.InfoContext(ctx, "grpc request", attrs...)
			case codes.Internal, codes.Unavailable, codes.Unknown:
				attrs = append(attrs, "error", err)
				if cause := errors.Unwrap(err); cause != nil {
					attrs = append(attrs, "cause", cause)
				}
				logger.ErrorContext(ctx, "grpc request failed", attrs...)
			default:
				logger.WarnContext(ctx, "grpc request rejected", append(attrs, "error", err)...)
			}
		}()
		return handler(ctx, req)
	}
}
