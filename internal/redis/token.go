package redis

import (
	"context"
	"errors"
	"time"

	rv8 "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"
)

const otelName = "github.com/taskhive/tasks-api/internal/redis"

const tokenPrefix = "refresh:"

// TokenStore represents the repository used for persisting refresh tokens.
// Tokens expire on their own via the key TTL.
type TokenStore struct {
	client *rv8.Client
	ttl    time.Duration
}

// NewTokenStore instantiates the refresh token repository.
func NewTokenStore(client *rv8.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{
		client: client,
		ttl:    ttl,
	}
}

// Save stores the token for the received user.
func (s *TokenStore) Save(ctx context.Context, token string, userID uuid.UUID) error {
	defer newOTELSpan(ctx, "TokenStore.Save").End()

	if err := s.client.Set(ctx, tokenPrefix+token, userID.String(), s.ttl).Err(); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Set")
	}

	return nil
}

// Fetch resolves the token to the user it was minted for. An unknown or
// expired token is an authentication failure, not a lookup miss.
func (s *TokenStore) Fetch(ctx context.Context, token string) (uuid.UUID, error) {
	defer newOTELSpan(ctx, "TokenStore.Fetch").End()

	val, err := s.client.Get(ctx, tokenPrefix+token).Result()
	if err != nil {
		if errors.Is(err, rv8.Nil) {
			return uuid.Nil, internal.NewErrorf(internal.ErrorCodeUnauthorized, "invalid refresh token")
		}

		return uuid.Nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Get")
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "uuid.Parse")
	}

	return userID, nil
}

// Delete revokes the token.
func (s *TokenStore) Delete(ctx context.Context, token string) error {
	defer newOTELSpan(ctx, "TokenStore.Delete").End()

	if err := s.client.Del(ctx, tokenPrefix+token).Err(); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Del")
	}

	return nil
}

func newOTELSpan(ctx context.Context, name string) trace.Span {
	_, span := otel.Tracer(otelName).Start(ctx, name)

	span.SetAttributes(semconv.DBSystemRedis)

	return span
}
