package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhive/tasks-api/internal"
)

const categoryColumns = "id, user_id, name, description, color, created_at, updated_at"

// Category represents the repository used for interacting with Category records.
type Category struct {
	pool *pgxpool.Pool
}

// NewCategory instantiates the Category repository.
func NewCategory(pool *pgxpool.Pool) *Category {
	return &Category{
		pool: pool,
	}
}

// List returns all categories owned by ownerID, each with the number of
// tasks referencing it.
func (c *Category) List(ctx context.Context, ownerID uuid.UUID) ([]internal.Category, error) {
	defer newOTELSpan(ctx, "Category.List").End()

	rows, err := c.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY name ASC, id ASC`,
		ownerID)
	if err != nil {
		return nil, translateError(err, "select categories")
	}
	defer rows.Close()

	var res []internal.Category

	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, translateError(err, "scan category")
		}

		res = append(res, category)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err, "rows")
	}

	return res, nil
}

// Find returns the category matching id, owned by ownerID.
func (c *Category) Find(ctx context.Context, ownerID, id uuid.UUID) (internal.Category, error) {
	defer newOTELSpan(ctx, "Category.Find").End()

	category, err := scanCategory(c.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND user_id = $2`,
		id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.Category{}, internal.WrapErrorf(err, internal.ErrorCodeNotFound, "category not found")
		}

		return internal.Category{}, translateError(err, "select category")
	}

	return category, nil
}

// Create inserts a new category; a (owner, name) collision is a conflict.
func (c *Category) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateCategoryParams) (internal.Category, error) {
	defer newOTELSpan(ctx, "Category.Create").End()

	category, err := scanCategory(c.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description, color, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		params.Name, params.Description, params.Color, ownerID))
	if err != nil {
		return internal.Category{}, translateError(err, "insert category")
	}

	return category, nil
}

// Update applies a partial update, only the present patch fields change.
func (c *Category) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.CategoryPatch) (internal.Category, error) {
	defer newOTELSpan(ctx, "Category.Update").End()

	assignments := []string{"updated_at = now()"}
	args := []interface{}{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}

	if patch.Description != nil {
		set("description", *patch.Description)
	}

	if patch.Color != nil {
		set("color", *patch.Color)
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf("UPDATE categories SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(assignments, ", "), len(args)-1, len(args), categoryColumns)

	category, err := scanCategory(c.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.Category{}, internal.WrapErrorf(err, internal.ErrorCodeNotFound, "category not found")
		}

		return internal.Category{}, translateError(err, "update category")
	}

	return category, nil
}

// Delete removes an owned category. Deletion is refused while tasks still
// reference it; the caller has to reassign or delete those first.
func (c *Category) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	defer newOTELSpan(ctx, "Category.Delete").End()

	return inTx(ctx, c.pool, func(tx pgx.Tx) error {
		var inUse int64

		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM tasks WHERE category_id = $1 AND user_id = $2",
			id, ownerID).Scan(&inUse); err != nil {
			return translateError(err, "count referencing tasks")
		}

		if inUse > 0 {
			return internal.NewErrorf(internal.ErrorCodeConflict, "category is in use by %d task(s)", inUse)
		}

		res, err := tx.Exec(ctx, "DELETE FROM categories WHERE id = $1 AND user_id = $2", id, ownerID)
		if err != nil {
			return translateError(err, "delete category")
		}

		if res.RowsAffected() == 0 {
			return internal.NewErrorf(internal.ErrorCodeNotFound, "category not found")
		}

		return nil
	})
}

func scanCategory(row pgx.Row) (internal.Category, error) {
	var category internal.Category

	if err := row.Scan(
		&category.ID,
		&category.OwnerID,
		&category.Name,
		&category.Description,
		&category.Color,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return internal.Category{}, err
	}

	return category, nil
}
