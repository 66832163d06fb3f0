package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"github.com/taskhive/tasks-api/internal/service"
)

// UserService ...
type UserService interface {
	Register(ctx context.Context, params internal.RegisterParams) (internal.User, service.AuthTokens, error)
	Login(ctx context.Context, params internal.LoginParams) (internal.User, service.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (internal.User, service.AuthTokens, error)
	Resolve(ctx context.Context, id uuid.UUID) (internal.User, error)
	ListActive(ctx context.Context) ([]internal.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// UserHandler ...
type UserHandler struct {
	svc UserService
}

// NewUserHandler ...
func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// RegisterAuth connects the credential endpoints to the router; these are
// the only routes outside the bearer-token gate.
func (u *UserHandler) RegisterAuth(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", u.register)
		r.Post("/login", u.login)
		r.Post("/refresh", u.refresh)
	})
}

// Register connects the authenticated user endpoints to the router.
func (u *UserHandler) Register(r chi.Router) {
	r.Post("/auth/verify", u.verify)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", u.list)
		r.Get("/profile", u.profile)
		r.Delete("/profile", u.deactivate)
	})
}

// User is the public profile of an account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser converts the domain type to the response one.
func NewUser(user internal.User) User {
	return User{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse is returned on registration, login and token refresh.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// RegisterRequest defines the request used for creating accounts.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest defines the request used for signing in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest defines the request used for rotating tokens.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (u *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	user, tokens, err := u.svc.Register(r.Context(), internal.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		renderErrorResponse(r.Context(), w, "register failed", err)
		return
	}

	renderResponse(w, AuthResponse{
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         NewUser(user),
	}, http.StatusCreated)
}

func (u *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	user, tokens, err := u.svc.Login(r.Context(), internal.LoginParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		renderErrorResponse(r.Context(), w, "login failed", err)
		return
	}

	renderResponse(w, AuthResponse{
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         NewUser(user),
	}, http.StatusOK)
}

func (u *UserHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	user, tokens, err := u.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		renderErrorResponse(r.Context(), w, "refresh failed", err)
		return
	}

	renderResponse(w, AuthResponse{
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         NewUser(user),
	}, http.StatusOK)
}

// verify confirms the presented token resolves to an active account; the
// middleware has already done the work by the time this handler runs.
func (u *UserHandler) verify(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	renderResponse(w, NewUser(owner), http.StatusOK)
}

func (u *UserHandler) profile(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	renderResponse(w, NewUser(owner), http.StatusOK)
}

// deactivate soft-deletes the caller's own account; the bearer token stops
// resolving on the next request.
func (u *UserHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	if err := u.svc.Deactivate(r.Context(), owner.ID); err != nil {
		renderErrorResponse(r.Context(), w, "deactivate failed", err)
		return
	}

	renderResponse(w, nil, http.StatusOK)
}

func (u *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerFromContext(r.Context()); !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	users, err := u.svc.ListActive(r.Context())
	if err != nil {
		renderErrorResponse(r.Context(), w, "list failed", err)
		return
	}

	res := make([]User, 0, len(users))
	for _, user := range users {
		res = append(res, NewUser(user))
	}

	renderResponse(w, res, http.StatusOK)
}
