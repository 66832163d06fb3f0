package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const otelName = "github.com/taskhive/tasks-api/internal/service"

// TaskRepository defines the datastore handling persisting Task records.
// Every method is scoped to the owning user.
type TaskRepository interface {
	Search(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error)
	Find(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
	Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error)
	BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
}

// TaskMessageBrokerRepository defines the datastore handling the publishing
// of task change events.
type TaskMessageBrokerRepository interface {
	Created(ctx context.Context, task internal.Task) error
	Updated(ctx context.Context, task internal.Task) error
	Deleted(ctx context.Context, id uuid.UUID) error
}

// Task defines the application service in charge of interacting with Tasks.
type Task struct {
	logger    *zap.Logger
	repo      TaskRepository
	msgBroker TaskMessageBrokerRepository
}

// NewTask ...
func NewTask(logger *zap.Logger, repo TaskRepository, msgBroker TaskMessageBrokerRepository) *Task {
	return &Task{
		logger:    logger,
		repo:      repo,
		msgBroker: msgBroker,
	}
}

// By returns the page of Tasks matching the received filters.
func (t *Task) By(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.By")
	defer span.End()

	params = params.WithDefaults()

	if err := params.Validate(); err != nil {
		return internal.SearchResults{}, fmt.Errorf("params validate: %w", err)
	}

	res, err := t.repo.Search(ctx, ownerID, params)
	if err != nil {
		return internal.SearchResults{}, fmt.Errorf("repo search: %w", err)
	}

	return res, nil
}

// Task gets an existing Task from the datastore.
func (t *Task) Task(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Task")
	defer span.End()

	task, err := t.repo.Find(ctx, ownerID, id)
	if err != nil {
		return internal.Task{}, fmt.Errorf("repo find: %w", err)
	}

	return task, nil
}

// Create stores a new record.
func (t *Task) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Create")
	defer span.End()

	params = params.WithDefaults()

	if err := params.Validate(); err != nil {
		return internal.Task{}, fmt.Errorf("params validate: %w", err)
	}

	task, err := t.repo.Create(ctx, ownerID, params)
	if err != nil {
		return internal.Task{}, fmt.Errorf("repo create: %w", err)
	}

	_ = t.msgBroker.Created(ctx, task) // XXX: Ignoring errors on purpose

	return task, nil
}

// Update applies a partial update to an existing Task.
func (t *Task) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Update")
	defer span.End()

	if err := patch.Validate(); err != nil {
		return internal.Task{}, fmt.Errorf("patch validate: %w", err)
	}

	task, err := t.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		return internal.Task{}, fmt.Errorf("repo update: %w", err)
	}

	_ = t.msgBroker.Updated(ctx, task) // XXX: Ignoring errors on purpose

	return task, nil
}

// BulkUpdate applies up to MaxBulkPatches partial updates as one
// all-or-nothing batch and returns the updated records.
func (t *Task) BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) ([]internal.Task, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.BulkUpdate")
	defer span.End()

	if len(patches) == 0 {
		return nil, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "no updates provided")
	}

	if len(patches) > internal.MaxBulkPatches {
		return nil, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "at most %d updates per batch", internal.MaxBulkPatches)
	}

	for _, p := range patches {
		if err := p.Patch.Validate(); err != nil {
			return nil, fmt.Errorf("patch validate (task %s): %w", p.ID, err)
		}
	}

	if err := t.repo.BulkUpdate(ctx, ownerID, patches); err != nil {
		return nil, fmt.Errorf("repo bulk update: %w", err)
	}

	res := make([]internal.Task, 0, len(patches))

	for _, p := range patches {
		task, err := t.repo.Find(ctx, ownerID, p.ID)
		if err != nil {
			t.logger.Warn("bulk update: reading back task", zap.String("id", p.ID.String()), zap.Error(err))
			continue
		}

		_ = t.msgBroker.Updated(ctx, task) // XXX: Ignoring errors on purpose

		res = append(res, task)
	}

	return res, nil
}

// Delete removes an existing Task from the datastore.
func (t *Task) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.Delete")
	defer span.End()

	if err := t.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("repo delete: %w", err)
	}

	_ = t.msgBroker.Deleted(ctx, id) // XXX: Ignoring errors on purpose

	return nil
}

// ToggleCompleted flips the completion flag of an existing Task.
func (t *Task) ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Task.ToggleCompleted")
	defer span.End()

	task, err := t.repo.ToggleCompleted(ctx, ownerID, id)
	if err != nil {
		return internal.Task{}, fmt.Errorf("repo toggle: %w", err)
	}

	_ = t.msgBroker.Updated(ctx, task) // XXX: Ignoring errors on purpose

	return task, nil
}
