package internal

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxTagLength         = 50
	maxTagsPerTask       = 10
)

// Priority indicates how important a Task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Validate ...
func (p Priority) Validate() error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	}

	return NewErrorf(ErrorCodeInvalidArgument, "unknown priority value: %q", p)
}

// Task is an activity owned by a user that needs to be completed within a
// period of time. The Category and Assignee fields are populated from the
// joined rows when the task is read back.
type Task struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	DueDate     time.Time
	Progress    int
	CategoryID  uuid.NullUUID
	AssignedTo  uuid.NullUUID
	Category    *CategoryRef
	Assignee    *AssigneeRef
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryRef is the denormalized category information attached to a Task.
type CategoryRef struct {
	Name  string
	Color string
}

// AssigneeRef is the denormalized assignee information attached to a Task.
type AssigneeRef struct {
	Username    string
	DisplayName string
}

// CreateTaskParams defines the values required for creating a new Task.
type CreateTaskParams struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     time.Time
	Progress    int
	CategoryID  uuid.NullUUID
	AssignedTo  uuid.NullUUID
	Tags        []string
}

// Validate ...
func (p CreateTaskParams) Validate() error {
	if p.Priority != "" {
		if err := p.Priority.Validate(); err != nil {
			return err
		}
	}

	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&p.Description, validation.Length(0, maxDescriptionLength)),
		validation.Field(&p.DueDate, validation.Required),
		validation.Field(&p.Progress, validation.Min(0), validation.Max(100)),
		validation.Field(&p.Tags, validation.Length(0, maxTagsPerTask)),
	); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation.Validate")
	}

	return validateTags(p.Tags)
}

// WithDefaults returns a copy of the params with the priority defaulted to
// medium when the caller did not choose one.
func (p CreateTaskParams) WithDefaults() CreateTaskParams {
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}

	return p
}

// OptionalID represents a nullable identifier field of a patch that tracks
// whether the caller supplied it at all: absent fields leave the stored value
// untouched, an explicit null clears it.
type OptionalID struct {
	Present bool
	Value   uuid.NullUUID
}

// TaskPatch defines a partial update of a Task: only non-nil (or Present)
// members generate a mutation of the corresponding column.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
	DueDate     *time.Time
	Progress    *int
	CategoryID  OptionalID
	AssignedTo  OptionalID
	Tags        *[]string
}

// IsZero indicates whether the patch carries no fields at all.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Completed == nil &&
		p.Priority == nil &&
		p.DueDate == nil &&
		p.Progress == nil &&
		!p.CategoryID.Present &&
		!p.AssignedTo.Present &&
		p.Tags == nil
}

// Validate ...
func (p TaskPatch) Validate() error {
	if p.IsZero() {
		return NewErrorf(ErrorCodeInvalidArgument, "no fields to update")
	}

	if p.Priority != nil {
		if err := p.Priority.Validate(); err != nil {
			return err
		}
	}

	var (
		title       string
		description string
		progress    int
		tags        []string
	)

	if p.Title != nil {
		title = *p.Title
	}
	if p.Description != nil {
		description = *p.Description
	}
	if p.Progress != nil {
		progress = *p.Progress
	}
	if p.Tags != nil {
		tags = *p.Tags
	}

	if err := (validation.Errors{
		"title":       validation.Validate(title, validation.When(p.Title != nil, validation.Required, validation.Length(1, maxTitleLength))),
		"description": validation.Validate(description, validation.Length(0, maxDescriptionLength)),
		"progress":    validation.Validate(progress, validation.Min(0), validation.Max(100)),
		"tags":        validation.Validate(tags, validation.Length(0, maxTagsPerTask)),
	}).Filter(); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation.Validate")
	}

	return validateTags(tags)
}

func validateTags(tags []string) error {
	for _, tag := range tags {
		if tag == "" || len(tag) > maxTagLength {
			return NewErrorf(ErrorCodeInvalidArgument, "tag must be 1-%d characters: %q", maxTagLength, tag)
		}
	}

	return nil
}

// BulkTaskPatch associates a TaskPatch with the task it applies to, used by
// the batch update operation.
type BulkTaskPatch struct {
	ID    uuid.UUID
	Patch TaskPatch
}

// MaxBulkPatches caps how many updates a single batch may carry.
const MaxBulkPatches = 50
