// transport/grpc — внутренний gRPC-эндпойнт проверки access-токенов для
// остальных сервисов платформы. Маппинг данных и ошибок, без бизнес-логики.
//
// Контракт ValidateToken:
//   - пустой токен -> codes.InvalidArgument;
//   - невалидный/просроченный токен -> {valid:false, reason}, не RPC-ошибка;
//   - иные ошибки -> codes.Internal без деталей.
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
	"github.com/pribylovaa/agrichain-auth/internal/tokens"
)

// Verifier проверяет access-токен (реализуется tokens.Manager).
type Verifier interface {
	VerifyAccess(token string) (models.Identity, error)
}

type TokenValidator struct {
	verifier Verifier
}

var _ TokenValidatorServer = (*TokenValidator)(nil)

// NewTokenValidator создаёт сервер проверки токенов.
func NewTokenValidator(v Verifier) *TokenValidator {
	return &TokenValidator{verifier: v}
}

// ValidateToken проверяет подпись, срок и тип access-токена.
func (s *TokenValidator) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	const op = "transport.grpc.ValidateToken"

	token := req.GetValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	id, err := s.verifier.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidToken) {
			reason := "invalid"
			if errors.Is(err, tokens.ErrTokenExpired) {
				reason = "expired"
			}

			log.From(ctx).Debug("token_invalid",
				slog.String("op", op),
				slog.String("reason", reason),
			)

			return invalidResponse(reason)
		}

		log.From(ctx).Error("token_validation_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"user_id":    id.UserID.String(),
		"role":       id.Role.String(),
		"expires_at": id.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}

	return resp, nil
}

func invalidResponse(reason string) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{
		"valid":  false,
		"reason": reason,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}

	return resp, nil
}
