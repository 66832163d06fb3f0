package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the datastore handling persisting User records.
type UserRepository interface {
	Create(ctx context.Context, params internal.RegisterParams, passwordHash string) (internal.User, error)
	Find(ctx context.Context, id uuid.UUID) (internal.User, error)
	FindByUsername(ctx context.Context, username string) (internal.User, error)
	ListActive(ctx context.Context) ([]internal.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// RefreshTokenRepository defines the datastore handling refresh tokens. The
// token value maps to the user it was minted for and expires on its own.
type RefreshTokenRepository interface {
	Save(ctx context.Context, token string, userID uuid.UUID) error
	Fetch(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

// AuthTokens is the credential pair handed out on registration and login.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
}

// User defines the application service in charge of accounts and credentials.
type User struct {
	repo      UserRepository
	tokens    RefreshTokenRepository
	secret    []byte
	accessTTL time.Duration
}

// NewUser ...
func NewUser(repo UserRepository, tokens RefreshTokenRepository, secret []byte, accessTTL time.Duration) *User {
	return &User{
		repo:      repo,
		tokens:    tokens,
		secret:    secret,
		accessTTL: accessTTL,
	}
}

// Register creates a new account and signs it in.
func (u *User) Register(ctx context.Context, params internal.RegisterParams) (internal.User, AuthTokens, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "User.Register")
	defer span.End()

	if err := params.Validate(); err != nil {
		return internal.User{}, AuthTokens{}, fmt.Errorf("params validate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return internal.User{}, AuthTokens{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "bcrypt.GenerateFromPassword")
	}

	user, err := u.repo.Create(ctx, params, string(hash))
	if err != nil {
		return internal.User{}, AuthTokens{}, fmt.Errorf("repo create: %w", err)
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return internal.User{}, AuthTokens{}, err
	}

	return user, tokens, nil
}

// Login verifies the received credentials. A missing account and a wrong
// password are indistinguishable to the caller.
func (u *User) Login(ctx context.Context, params internal.LoginParams) (internal.User, AuthTokens, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "User.Login")
	defer span.End()

	if err := params.Validate(); err != nil {
		return internal.User{}, AuthTokens{}, fmt.Errorf("params validate: %w", err)
	}

	user, err := u.repo.FindByUsername(ctx, params.Username)
	if err != nil {
		var ierr *internal.Error
		if errors.As(err, &ierr) && ierr.Code() == internal.ErrorCodeNotFound {
			return internal.User{}, AuthTokens{}, internal.NewErrorf(internal.ErrorCodeUnauthorized, "invalid credentials")
		}

		return internal.User{}, AuthTokens{}, fmt.Errorf("repo find: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return internal.User{}, AuthTokens{}, internal.NewErrorf(internal.ErrorCodeUnauthorized, "invalid credentials")
	}

	if !user.Active {
		return internal.User{}, AuthTokens{}, internal.NewErrorf(internal.ErrorCodeUnauthorized, "account deactivated")
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return internal.User{}, AuthTokens{}, err
	}

	return user, tokens, nil
}

// Resolve returns the active account behind an authenticated user id; used
// by the request middleware after the bearer token checks out.
func (u *User) Resolve(ctx context.Context, id uuid.UUID) (internal.User, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "User.Resolve")
	defer span.End()

	user, err := u.repo.Find(ctx, id)
	if err != nil {
		var ierr *internal.Error
		if errors.As(err, &ierr) && ierr.Code() == internal.ErrorCodeNotFound {
			return internal.User{}, internal.NewErrorf(internal.ErrorCodeUnauthorized, "unknown account")
		}

		return internal.User{}, fmt.Errorf("repo find: %w", err)
	}

	if !user.Active {
		return internal.User{}, internal.NewErrorf(internal.ErrorCodeUnauthorized, "account deactivated")
	}

	return user, nil
}

// Refresh rotates the received refresh token into a fresh credential pair.
func (u *User) Refresh(ctx context.Context, refreshToken string) (internal.User, AuthTokens, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "User.Refresh")
	defer span.End()

	userID, err := u.tokens.Fetch(ctx, refreshToken)
	if err != nil {
		return internal.User{}, AuthTokens{}, fmt.Errorf("tokens fetch: %w", err)
	}

	user, err := u.Resolve(ctx, userID)
	if err != nil {
		return internal.User{}, AuthTokens{}, err
	}

	if err := u.tokens.Delete(ctx, refreshToken); err != nil {
		return internal.User{}, AuthTokens{}, fmt.Errorf("tokens delete: %w", err)
	}

	tokens, err := u.issueTokens(ctx, user)
	if err != nil {
		return internal.User{}, AuthTokens{}, err
	}

	return user, tokens, nil
}

// ListActive returns every active account.
func (u *User) ListActive(ctx context.Context) ([]internal.User, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "User.ListActive")
	defer span.End()

	res, err := u.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo list: %w", err)
	}

	return res, nil
}

// Deactivate soft-deletes the account so its credentials stop working.
// Owned tasks and categories are kept.
func (u *User) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "User.Deactivate")
	defer span.End()

	if err := u.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("repo deactivate: %w", err)
	}

	return nil
}

func (u *User) issueTokens(ctx context.Context, user internal.User) (AuthTokens, error) {
	now := time.Now()

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID.String(),
		"iat":    now.Unix(),
		"exp":    now.Add(u.accessTTL).Unix(),
	}).SignedString(u.secret)
	if err != nil {
		return AuthTokens{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "jwt.SignedString")
	}

	refresh := uuid.NewString()

	if err := u.tokens.Save(ctx, refresh, user.ID); err != nil {
		return AuthTokens{}, fmt.Errorf("tokens save: %w", err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
