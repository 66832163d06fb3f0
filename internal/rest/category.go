package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
)

// CategoryService ...
type CategoryService interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]internal.Category, error)
	Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateCategoryParams) (internal.Category, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.CategoryPatch) (internal.Category, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// CategoryHandler ...
type CategoryHandler struct {
	svc CategoryService
}

// NewCategoryHandler ...
func NewCategoryHandler(svc CategoryService) *CategoryHandler {
	return &CategoryHandler{
		svc: svc,
	}
}

// Register connects the handlers to the router.
func (c *CategoryHandler) Register(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", c.list)
		r.Post("/", c.create)
		r.Put("/{id}", c.update)
		r.Delete("/{id}", c.delete)
	})
}

// Category is a user-defined grouping of tasks.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewCategory converts the domain type to the response one.
func NewCategory(category internal.Category) Category {
	return Category{
		ID:          category.ID.String(),
		Name:        category.Name,
		Description: category.Description,
		Color:       category.Color,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

// CreateCategoryRequest defines the request used for creating categories.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// UpdateCategoryRequest defines the request used for updating a category.
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (c *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	categories, err := c.svc.List(r.Context(), owner.ID)
	if err != nil {
		renderErrorResponse(r.Context(), w, "list failed", err)
		return
	}

	res := make([]Category, 0, len(categories))
	for _, category := range categories {
		res = append(res, NewCategory(category))
	}

	renderResponse(w, res, http.StatusOK)
}

func (c *CategoryHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	category, err := c.svc.Create(r.Context(), owner.ID, internal.CreateCategoryParams{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		renderErrorResponse(r.Context(), w, "create failed", err)
		return
	}

	renderResponse(w, NewCategory(category), http.StatusCreated)
}

func (c *CategoryHandler) update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid id", err)
		return
	}

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	category, err := c.svc.Update(r.Context(), owner.ID, id, internal.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		renderErrorResponse(r.Context(), w, "update failed", err)
		return
	}

	renderResponse(w, NewCategory(category), http.StatusOK)
}

func (c *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid id", err)
		return
	}

	if err := c.svc.Delete(r.Context(), owner.ID, id); err != nil {
		renderErrorResponse(r.Context(), w, "delete failed", err)
		return
	}

	renderResponse(w, nil, http.StatusOK)
}
