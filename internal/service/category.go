package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
)

// CategoryRepository defines the datastore handling persisting Category
// records, scoped to the owning user.
type CategoryRepository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]internal.Category, error)
	Find(ctx context.Context, ownerID, id uuid.UUID) (internal.Category, error)
	Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateCategoryParams) (internal.Category, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.CategoryPatch) (internal.Category, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// Category defines the application service in charge of interacting with
// Categories.
type Category struct {
	repo CategoryRepository
}

// NewCategory ...
func NewCategory(repo CategoryRepository) *Category {
	return &Category{
		repo: repo,
	}
}

// List returns every category owned by ownerID.
func (c *Category) List(ctx context.Context, ownerID uuid.UUID) ([]internal.Category, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Category.List")
	defer span.End()

	res, err := c.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("repo list: %w", err)
	}

	return res, nil
}

// Create stores a new record.
func (c *Category) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateCategoryParams) (internal.Category, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Category.Create")
	defer span.End()

	params = params.WithDefaults()

	if err := params.Validate(); err != nil {
		return internal.Category{}, fmt.Errorf("params validate: %w", err)
	}

	category, err := c.repo.Create(ctx, ownerID, params)
	if err != nil {
		return internal.Category{}, fmt.Errorf("repo create: %w", err)
	}

	return category, nil
}

// Update applies a partial update to an existing Category.
func (c *Category) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.CategoryPatch) (internal.Category, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Category.Update")
	defer span.End()

	if err := patch.Validate(); err != nil {
		return internal.Category{}, fmt.Errorf("patch validate: %w", err)
	}

	category, err := c.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		return internal.Category{}, fmt.Errorf("repo update: %w", err)
	}

	return category, nil
}

// Delete removes an existing Category, refusing while tasks still reference it.
func (c *Category) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Category.Delete")
	defer span.End()

	if err := c.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("repo delete: %w", err)
	}

	return nil
}
