package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/tasks-api/internal"
)

type fakeTaskService struct {
	byFn     func(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error)
	taskFn   func(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
	createFn func(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error)
	updateFn func(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error)
	bulkFn   func(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) ([]internal.Task, error)
	deleteFn func(ctx context.Context, ownerID, id uuid.UUID) error
	toggleFn func(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
}

func (f *fakeTaskService) By(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
	return f.byFn(ctx, ownerID, params)
}

func (f *fakeTaskService) Task(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	return f.taskFn(ctx, ownerID, id)
}

func (f *fakeTaskService) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
	return f.createFn(ctx, ownerID, params)
}

func (f *fakeTaskService) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
	return f.updateFn(ctx, ownerID, id, patch)
}

func (f *fakeTaskService) BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) ([]internal.Task, error) {
	return f.bulkFn(ctx, ownerID, patches)
}

func (f *fakeTaskService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return f.deleteFn(ctx, ownerID, id)
}

func (f *fakeTaskService) ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	return f.toggleFn(ctx, ownerID, id)
}

func newTaskRouter(svc TaskService, owner internal.User) http.Handler {
	router := chi.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerContextKey, owner)))
		})
	})

	NewTaskHandler(svc).Register(router)

	return router
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	return rec, envelope
}

func TestTaskHandler_List(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New(), Username: "gopher"}

	t.Run("paginated envelope", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTaskService{
			byFn: func(_ context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
				assert.Equal(t, owner.ID, ownerID)

				return internal.SearchResults{
					Tasks: []internal.Task{{ID: uuid.New(), Title: "one"}},
					Total: 25,
				}, nil
			},
		}

		rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodGet, "/tasks?page=2&limit=10", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, envelope["success"])

		pagination, ok := envelope["pagination"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(2), pagination["page"])
		assert.Equal(t, float64(25), pagination["total"])
		assert.Equal(t, float64(3), pagination["pages"])
	})

	t.Run("filters forwarded to the service", func(t *testing.T) {
		t.Parallel()

		categoryID := uuid.New()

		svc := &fakeTaskService{
			byFn: func(_ context.Context, _ uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
				require.NotNil(t, params.Completed)
				assert.True(t, *params.Completed)
				require.NotNil(t, params.Priority)
				assert.Equal(t, internal.PriorityHigh, *params.Priority)
				require.NotNil(t, params.CategoryID)
				assert.Equal(t, categoryID, *params.CategoryID)
				assert.Equal(t, "report", params.Search)

				return internal.SearchResults{}, nil
			},
		}

		rec, _ := doRequest(t, newTaskRouter(svc, owner), http.MethodGet,
			"/tasks?completed=true&priority=high&categoryId="+categoryID.String()+"&search=report", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad completed value", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTaskService{}

		rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodGet, "/tasks?completed=banana", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, envelope["success"])
	})

	t.Run("unknown sort field", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTaskService{
			byFn: func(_ context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
				params = params.WithDefaults()
				if err := params.Validate(); err != nil {
					return internal.SearchResults{}, err
				}

				return internal.SearchResults{}, nil
			},
		}

		rec, _ := doRequest(t, newTaskRouter(svc, owner), http.MethodGet, "/tasks?sortBy=ownerId", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Create(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New()}

	svc := &fakeTaskService{
		createFn: func(_ context.Context, _ uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
			return internal.Task{
				ID:       uuid.New(),
				Title:    params.Title,
				Priority: params.Priority,
				DueDate:  params.DueDate,
				Tags:     params.Tags,
			}, nil
		},
	}

	body := `{"title":"Write report","priority":"high","dueDate":"2026-09-15T12:00:00Z","tags":["work"]}`

	rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodPost, "/tasks", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, envelope["success"])

	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Write report", data["title"])
	assert.Equal(t, "high", data["priority"])
	assert.Nil(t, data["categoryId"])

	tags, ok := data["tags"].([]interface{})
	require.True(t, ok)
	require.Len(t, tags, 1)
}

func TestTaskHandler_Update(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New()}
	taskID := uuid.New()

	t.Run("explicit null clears the category", func(t *testing.T) {
		t.Parallel()

		var gotPatch internal.TaskPatch

		svc := &fakeTaskService{
			updateFn: func(_ context.Context, _, _ uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
				gotPatch = patch
				return internal.Task{ID: taskID}, nil
			},
		}

		rec, _ := doRequest(t, newTaskRouter(svc, owner), http.MethodPut, "/tasks/"+taskID.String(),
			`{"categoryId":null}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gotPatch.CategoryID.Present)
		assert.False(t, gotPatch.CategoryID.Value.Valid)
	})

	t.Run("absent field stays untouched", func(t *testing.T) {
		t.Parallel()

		var gotPatch internal.TaskPatch

		svc := &fakeTaskService{
			updateFn: func(_ context.Context, _, _ uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
				gotPatch = patch
				return internal.Task{ID: taskID}, nil
			},
		}

		rec, _ := doRequest(t, newTaskRouter(svc, owner), http.MethodPut, "/tasks/"+taskID.String(),
			`{"title":"renamed"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, gotPatch.CategoryID.Present)
		assert.False(t, gotPatch.AssignedTo.Present)
		require.NotNil(t, gotPatch.Title)
		assert.Equal(t, "renamed", *gotPatch.Title)
		assert.Nil(t, gotPatch.Tags)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTaskService{
			updateFn: func(context.Context, uuid.UUID, uuid.UUID, internal.TaskPatch) (internal.Task, error) {
				return internal.Task{}, internal.NewErrorf(internal.ErrorCodeNotFound, "task not found")
			},
		}

		rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodPut, "/tasks/"+taskID.String(),
			`{"title":"renamed"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "update failed", envelope["error"])
	})

	t.Run("invalid id maps to 400", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTaskService{}

		rec, _ := doRequest(t, newTaskRouter(svc, owner), http.MethodPut, "/tasks/not-a-uuid", `{"title":"x"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_BulkUpdate(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New()}
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	svc := &fakeTaskService{
		bulkFn: func(_ context.Context, _ uuid.UUID, patches []internal.BulkTaskPatch) ([]internal.Task, error) {
			require.Len(t, patches, 2)
			assert.Equal(t, ids[0], patches[0].ID)
			require.NotNil(t, patches[0].Patch.Completed)
			assert.True(t, *patches[0].Patch.Completed)

			res := make([]internal.Task, 0, len(patches))
			for _, p := range patches {
				res = append(res, internal.Task{ID: p.ID})
			}

			return res, nil
		},
	}

	body := `{"tasks":[` +
		`{"id":"` + ids[0].String() + `","completed":true},` +
		`{"id":"` + ids[1].String() + `","progress":80}]}`

	rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodPut, "/tasks/bulk", body)

	assert.Equal(t, http.StatusOK, rec.Code)

	data, ok := envelope["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestTaskHandler_BulkUpdate_ReportsFailingID(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New()}
	missingID := uuid.New()

	svc := &fakeTaskService{
		bulkFn: func(_ context.Context, _ uuid.UUID, _ []internal.BulkTaskPatch) ([]internal.Task, error) {
			return nil, internal.WrapErrorf(
				internal.NewErrorf(internal.ErrorCodeNotFound, "update task: not found"),
				internal.ErrorCodeNotFound, "task %s", missingID)
		},
	}

	body := `{"tasks":[{"id":"` + missingID.String() + `","completed":true}]}`

	rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodPut, "/tasks/bulk", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, envelope["success"])

	msg, ok := envelope["error"].(string)
	require.True(t, ok)
	assert.Contains(t, msg, missingID.String())
}

func TestTaskHandler_Toggle(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New()}
	taskID := uuid.New()

	svc := &fakeTaskService{
		toggleFn: func(_ context.Context, _, id uuid.UUID) (internal.Task, error) {
			assert.Equal(t, taskID, id)
			return internal.Task{ID: id, Completed: true}, nil
		},
	}

	rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodPatch, "/tasks/"+taskID.String()+"/toggle", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["completed"])
}

func TestTaskHandler_Delete(t *testing.T) {
	t.Parallel()

	owner := internal.User{ID: uuid.New()}
	taskID := uuid.New()

	svc := &fakeTaskService{
		deleteFn: func(_ context.Context, _, id uuid.UUID) error {
			assert.Equal(t, taskID, id)
			return nil
		},
	}

	rec, envelope := doRequest(t, newTaskRouter(svc, owner), http.MethodDelete, "/tasks/"+taskID.String(), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, envelope["success"])
}

func TestOptionalID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	var req UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignedTo":"`+id.String()+`"}`), &req))
	assert.True(t, req.AssignedTo.present)
	assert.True(t, req.AssignedTo.value.Valid)
	assert.Equal(t, id, req.AssignedTo.value.UUID)

	req = UpdateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"assignedTo":null}`), &req))
	assert.True(t, req.AssignedTo.present)
	assert.False(t, req.AssignedTo.value.Valid)

	req = UpdateTaskRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.False(t, req.AssignedTo.present)
}

func TestNewTask_JoinedFields(t *testing.T) {
	t.Parallel()

	categoryID := uuid.New()

	task := internal.Task{
		ID:         uuid.New(),
		Title:      "with refs",
		DueDate:    time.Now(),
		CategoryID: uuid.NullUUID{UUID: categoryID, Valid: true},
		Category:   &internal.CategoryRef{Name: "Work", Color: "#112233"},
		Assignee:   &internal.AssigneeRef{Username: "gopher", DisplayName: "Go Pher"},
		AssignedTo: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Tags:       []string{"a", "b"},
	}

	got := NewTask(task)

	require.NotNil(t, got.CategoryID)
	assert.Equal(t, categoryID.String(), *got.CategoryID)
	assert.Equal(t, "Work", got.CategoryName)
	assert.Equal(t, "#112233", got.CategoryColor)
	assert.Equal(t, "Go Pher", got.AssigneeName)
	assert.Len(t, got.Tags, 2)
}
