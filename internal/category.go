package internal

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#6366f1"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category is a user-defined grouping of tasks.
type Category struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCategoryParams defines the values required for creating a new Category.
type CreateCategoryParams struct {
	Name        string
	Description string
	Color       string
}

// Validate ...
func (p CreateCategoryParams) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Description, validation.Length(0, maxDescriptionLength)),
		validation.Field(&p.Color, validation.Match(colorPattern)),
	); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation.Validate")
	}

	return nil
}

// WithDefaults returns a copy of the params with the color defaulted when the
// caller did not choose one.
func (p CreateCategoryParams) WithDefaults() CreateCategoryParams {
	if p.Color == "" {
		p.Color = DefaultCategoryColor
	}

	return p
}

// CategoryPatch defines a partial update of a Category.
type CategoryPatch struct {
	Name        *string
	Description *string
	Color       *string
}

// IsZero indicates whether the patch carries no fields at all.
func (p CategoryPatch) IsZero() bool {
	return p.Name == nil && p.Description == nil && p.Color == nil
}

// Validate ...
func (p CategoryPatch) Validate() error {
	if p.IsZero() {
		return NewErrorf(ErrorCodeInvalidArgument, "no fields to update")
	}

	if p.Name != nil && (*p.Name == "" || len(*p.Name) > 100) {
		return NewErrorf(ErrorCodeInvalidArgument, "name must be 1-100 characters")
	}

	if p.Description != nil && len(*p.Description) > maxDescriptionLength {
		return NewErrorf(ErrorCodeInvalidArgument, "description must be at most %d characters", maxDescriptionLength)
	}

	if p.Color != nil && !colorPattern.MatchString(*p.Color) {
		return NewErrorf(ErrorCodeInvalidArgument, "color must be a 6 hex digit value: %q", *p.Color)
	}

	return nil
}
