package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/tasks-api/internal"
	"github.com/taskhive/tasks-api/internal/service"
	"go.uber.org/zap"
)

type fakeTaskRepo struct {
	searchFn func(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error)
	findFn   func(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
	createFn func(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error)
	updateFn func(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error)
	bulkFn   func(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) error
	deleteFn func(ctx context.Context, ownerID, id uuid.UUID) error
	toggleFn func(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
}

func (f *fakeTaskRepo) Search(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
	return f.searchFn(ctx, ownerID, params)
}

func (f *fakeTaskRepo) Find(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	return f.findFn(ctx, ownerID, id)
}

func (f *fakeTaskRepo) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
	return f.createFn(ctx, ownerID, params)
}

func (f *fakeTaskRepo) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
	return f.updateFn(ctx, ownerID, id, patch)
}

func (f *fakeTaskRepo) BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) error {
	return f.bulkFn(ctx, ownerID, patches)
}

func (f *fakeTaskRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return f.deleteFn(ctx, ownerID, id)
}

func (f *fakeTaskRepo) ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	return f.toggleFn(ctx, ownerID, id)
}

type fakeBroker struct {
	created []internal.Task
	updated []internal.Task
	deleted []uuid.UUID
}

func (f *fakeBroker) Created(_ context.Context, task internal.Task) error {
	f.created = append(f.created, task)
	return nil
}

func (f *fakeBroker) Updated(_ context.Context, task internal.Task) error {
	f.updated = append(f.updated, task)
	return nil
}

func (f *fakeBroker) Deleted(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func requireCode(t *testing.T, err error, code internal.ErrorCode) {
	t.Helper()

	var ierr *internal.Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, code, ierr.Code())
}

func TestTask_By(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults before searching", func(t *testing.T) {
		t.Parallel()

		var gotParams internal.SearchParams

		repo := &fakeTaskRepo{
			searchFn: func(_ context.Context, _ uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
				gotParams = params
				return internal.SearchResults{Total: 0}, nil
			},
		}

		svc := service.NewTask(zap.NewNop(), repo, &fakeBroker{})

		_, err := svc.By(context.Background(), uuid.New(), internal.SearchParams{})
		require.NoError(t, err)

		assert.Equal(t, int64(1), gotParams.Page)
		assert.Equal(t, int64(10), gotParams.Limit)
		assert.Equal(t, internal.SortByCreatedAt, gotParams.SortBy)
		assert.Equal(t, internal.SortDescending, gotParams.SortOrder)
	})

	t.Run("rejects unknown sort field without touching the repository", func(t *testing.T) {
		t.Parallel()

		repo := &fakeTaskRepo{
			searchFn: func(context.Context, uuid.UUID, internal.SearchParams) (internal.SearchResults, error) {
				t.Fatal("repository should not be called")
				return internal.SearchResults{}, nil
			},
		}

		svc := service.NewTask(zap.NewNop(), repo, &fakeBroker{})

		_, err := svc.By(context.Background(), uuid.New(), internal.SearchParams{SortBy: "ownerId"})
		requireCode(t, err, internal.ErrorCodeInvalidArgument)
	})
}

func TestTask_Create(t *testing.T) {
	t.Parallel()

	t.Run("publishes a created event", func(t *testing.T) {
		t.Parallel()

		stored := internal.Task{ID: uuid.New(), Title: "new"}

		repo := &fakeTaskRepo{
			createFn: func(context.Context, uuid.UUID, internal.CreateTaskParams) (internal.Task, error) {
				return stored, nil
			},
		}
		broker := &fakeBroker{}

		svc := service.NewTask(zap.NewNop(), repo, broker)

		got, err := svc.Create(context.Background(), uuid.New(), internal.CreateTaskParams{
			Title:   "new",
			DueDate: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		assert.Equal(t, stored, got)
		require.Len(t, broker.created, 1)
		assert.Equal(t, stored.ID, broker.created[0].ID)
	})

	t.Run("defaults the priority to medium", func(t *testing.T) {
		t.Parallel()

		var gotParams internal.CreateTaskParams

		repo := &fakeTaskRepo{
			createFn: func(_ context.Context, _ uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
				gotParams = params
				return internal.Task{}, nil
			},
		}

		svc := service.NewTask(zap.NewNop(), repo, &fakeBroker{})

		_, err := svc.Create(context.Background(), uuid.New(), internal.CreateTaskParams{
			Title:   "new",
			DueDate: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		assert.Equal(t, internal.PriorityMedium, gotParams.Priority)
	})

	t.Run("invalid params never reach the repository", func(t *testing.T) {
		t.Parallel()

		repo := &fakeTaskRepo{
			createFn: func(context.Context, uuid.UUID, internal.CreateTaskParams) (internal.Task, error) {
				t.Fatal("repository should not be called")
				return internal.Task{}, nil
			},
		}

		svc := service.NewTask(zap.NewNop(), repo, &fakeBroker{})

		_, err := svc.Create(context.Background(), uuid.New(), internal.CreateTaskParams{})
		requireCode(t, err, internal.ErrorCodeInvalidArgument)
	})
}

func TestTask_Update(t *testing.T) {
	t.Parallel()

	t.Run("empty patch is rejected", func(t *testing.T) {
		t.Parallel()

		svc := service.NewTask(zap.NewNop(), &fakeTaskRepo{}, &fakeBroker{})

		_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), internal.TaskPatch{})
		requireCode(t, err, internal.ErrorCodeInvalidArgument)
	})

	t.Run("publishes an updated event", func(t *testing.T) {
		t.Parallel()

		title := "renamed"
		stored := internal.Task{ID: uuid.New(), Title: title}

		repo := &fakeTaskRepo{
			updateFn: func(context.Context, uuid.UUID, uuid.UUID, internal.TaskPatch) (internal.Task, error) {
				return stored, nil
			},
		}
		broker := &fakeBroker{}

		svc := service.NewTask(zap.NewNop(), repo, broker)

		got, err := svc.Update(context.Background(), uuid.New(), stored.ID, internal.TaskPatch{Title: &title})
		require.NoError(t, err)

		assert.Equal(t, stored, got)
		require.Len(t, broker.updated, 1)
	})

	t.Run("missing task keeps the not found code", func(t *testing.T) {
		t.Parallel()

		title := "renamed"

		repo := &fakeTaskRepo{
			updateFn: func(context.Context, uuid.UUID, uuid.UUID, internal.TaskPatch) (internal.Task, error) {
				return internal.Task{}, internal.NewErrorf(internal.ErrorCodeNotFound, "task not found")
			},
		}
		broker := &fakeBroker{}

		svc := service.NewTask(zap.NewNop(), repo, broker)

		_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), internal.TaskPatch{Title: &title})
		requireCode(t, err, internal.ErrorCodeNotFound)
		assert.Empty(t, broker.updated)
	})
}

func TestTask_BulkUpdate(t *testing.T) {
	t.Parallel()

	title := "renamed"

	t.Run("empty batch is rejected", func(t *testing.T) {
		t.Parallel()

		svc := service.NewTask(zap.NewNop(), &fakeTaskRepo{}, &fakeBroker{})

		_, err := svc.BulkUpdate(context.Background(), uuid.New(), nil)
		requireCode(t, err, internal.ErrorCodeInvalidArgument)
	})

	t.Run("oversized batch is rejected", func(t *testing.T) {
		t.Parallel()

		patches := make([]internal.BulkTaskPatch, internal.MaxBulkPatches+1)
		for i := range patches {
			patches[i] = internal.BulkTaskPatch{ID: uuid.New(), Patch: internal.TaskPatch{Title: &title}}
		}

		svc := service.NewTask(zap.NewNop(), &fakeTaskRepo{}, &fakeBroker{})

		_, err := svc.BulkUpdate(context.Background(), uuid.New(), patches)
		requireCode(t, err, internal.ErrorCodeInvalidArgument)
	})

	t.Run("one invalid patch fails the whole batch", func(t *testing.T) {
		t.Parallel()

		repo := &fakeTaskRepo{
			bulkFn: func(context.Context, uuid.UUID, []internal.BulkTaskPatch) error {
				t.Fatal("repository should not be called")
				return nil
			},
		}

		svc := service.NewTask(zap.NewNop(), repo, &fakeBroker{})

		_, err := svc.BulkUpdate(context.Background(), uuid.New(), []internal.BulkTaskPatch{
			{ID: uuid.New(), Patch: internal.TaskPatch{Title: &title}},
			{ID: uuid.New(), Patch: internal.TaskPatch{}},
		})
		requireCode(t, err, internal.ErrorCodeInvalidArgument)
	})

	t.Run("reads back and publishes every updated task", func(t *testing.T) {
		t.Parallel()

		ids := []uuid.UUID{uuid.New(), uuid.New()}

		repo := &fakeTaskRepo{
			bulkFn: func(context.Context, uuid.UUID, []internal.BulkTaskPatch) error {
				return nil
			},
			findFn: func(_ context.Context, _ uuid.UUID, id uuid.UUID) (internal.Task, error) {
				return internal.Task{ID: id}, nil
			},
		}
		broker := &fakeBroker{}

		svc := service.NewTask(zap.NewNop(), repo, broker)

		got, err := svc.BulkUpdate(context.Background(), uuid.New(), []internal.BulkTaskPatch{
			{ID: ids[0], Patch: internal.TaskPatch{Title: &title}},
			{ID: ids[1], Patch: internal.TaskPatch{Title: &title}},
		})
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, ids[0], got[0].ID)
		assert.Equal(t, ids[1], got[1].ID)
		assert.Len(t, broker.updated, 2)
	})
}

func TestTask_Delete(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	repo := &fakeTaskRepo{
		deleteFn: func(context.Context, uuid.UUID, uuid.UUID) error {
			return nil
		},
	}
	broker := &fakeBroker{}

	svc := service.NewTask(zap.NewNop(), repo, broker)

	require.NoError(t, svc.Delete(context.Background(), uuid.New(), id))
	require.Len(t, broker.deleted, 1)
	assert.Equal(t, id, broker.deleted[0])
}

func TestTask_ToggleCompleted(t *testing.T) {
	t.Parallel()

	stored := internal.Task{ID: uuid.New(), Completed: true}

	repo := &fakeTaskRepo{
		toggleFn: func(context.Context, uuid.UUID, uuid.UUID) (internal.Task, error) {
			return stored, nil
		},
	}
	broker := &fakeBroker{}

	svc := service.NewTask(zap.NewNop(), repo, broker)

	got, err := svc.ToggleCompleted(context.Background(), uuid.New(), stored.ID)
	require.NoError(t, err)

	assert.True(t, got.Completed)
	require.Len(t, broker.updated, 1)
}
