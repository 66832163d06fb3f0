// Package memcached decorates the Task datastore with cache-aside reads:
// single-task lookups are served from memcached when possible, mutations
// keep the cached copy in sync. Listings always hit the datastore, their
// result depends on filters and pagination.
package memcached

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"github.com/taskhive/tasks-api/internal/service"
	"go.uber.org/zap"
)

// Task wraps another TaskRepository with a memcached layer.
type Task struct {
	client     *memcache.Client
	orig       service.TaskRepository
	expiration time.Duration
	logger     *zap.Logger
}

var _ service.TaskRepository = (*Task)(nil)

// NewTask instantiates the caching Task repository.
func NewTask(client *memcache.Client, orig service.TaskRepository, logger *zap.Logger) *Task {
	return &Task{
		client:     client,
		orig:       orig,
		expiration: 15 * time.Minute,
		logger:     logger,
	}
}

// Cache keys carry the owner so a cached record can never be served across
// users.
func taskKey(ownerID, id uuid.UUID) string {
	return "task:" + ownerID.String() + ":" + id.String()
}

// Search passes through to the datastore.
func (t *Task) Search(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
	defer newOTELSpan(ctx, "Task.Search").End()

	return t.orig.Search(ctx, ownerID, params)
}

// Find implements cache-aside reading.
func (t *Task) Find(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Find").End()

	var res internal.Task

	if err := getValue(ctx, t.client, taskKey(ownerID, id), &res); err == nil {
		return res, nil
	}

	res, err := t.orig.Find(ctx, ownerID, id)
	if err != nil {
		return internal.Task{}, err
	}

	setValue(ctx, t.client, taskKey(ownerID, id), &res, t.expiration)

	return res, nil
}

// Create ...
func (t *Task) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Create").End()

	task, err := t.orig.Create(ctx, ownerID, params)
	if err != nil {
		return internal.Task{}, err
	}

	setValue(ctx, t.client, taskKey(ownerID, task.ID), &task, t.expiration)

	return task, nil
}

// Update ...
func (t *Task) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Update").End()

	task, err := t.orig.Update(ctx, ownerID, id, patch)
	if err != nil {
		return internal.Task{}, err
	}

	setValue(ctx, t.client, taskKey(ownerID, id), &task, t.expiration)

	return task, nil
}

// BulkUpdate invalidates every touched record; the read-back on the service
// side repopulates them.
func (t *Task) BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) error {
	defer newOTELSpan(ctx, "Task.BulkUpdate").End()

	if err := t.orig.BulkUpdate(ctx, ownerID, patches); err != nil {
		return err
	}

	for _, p := range patches {
		deleteKey(ctx, t.client, taskKey(ownerID, p.ID))
	}

	return nil
}

// Delete ...
func (t *Task) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	defer newOTELSpan(ctx, "Task.Delete").End()

	if err := t.orig.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	deleteKey(ctx, t.client, taskKey(ownerID, id))

	return nil
}

// ToggleCompleted ...
func (t *Task) ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.ToggleCompleted").End()

	task, err := t.orig.ToggleCompleted(ctx, ownerID, id)
	if err != nil {
		return internal.Task{}, err
	}

	setValue(ctx, t.client, taskKey(ownerID, id), &task, t.expiration)

	return task, nil
}
