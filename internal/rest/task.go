package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
)

// TaskService ...
type TaskService interface {
	By(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error)
	Task(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
	Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error)
	BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) ([]internal.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error)
}

// TaskHandler ...
type TaskHandler struct {
	svc TaskService
}

// NewTaskHandler ...
func NewTaskHandler(svc TaskService) *TaskHandler {
	return &TaskHandler{
		svc: svc,
	}
}

// Register connects the handlers to the router.
func (t *TaskHandler) Register(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", t.list)
		r.Post("/", t.create)
		r.Put("/bulk", t.bulkUpdate)
		r.Get("/{id}", t.find)
		r.Put("/{id}", t.update)
		r.Delete("/{id}", t.delete)
		r.Patch("/{id}/toggle", t.toggle)
	})
}

// Task is an activity that needs to be completed within a period of time.
type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Completed     bool      `json:"completed"`
	Priority      string    `json:"priority"`
	DueDate       time.Time `json:"dueDate"`
	Progress      int       `json:"progress"`
	CategoryID    *string   `json:"categoryId"`
	CategoryName  string    `json:"categoryName,omitempty"`
	CategoryColor string    `json:"categoryColor,omitempty"`
	AssignedTo    *string   `json:"assignedTo"`
	AssigneeName  string    `json:"assigneeName,omitempty"`
	Tags          []Tag     `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Tag names a label attached to a task.
type Tag struct {
	Name string `json:"name"`
}

// NewTask converts the domain type to the response one.
func NewTask(task internal.Task) Task {
	res := Task{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		Progress:    task.Progress,
		Tags:        make([]Tag, 0, len(task.Tags)),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if task.CategoryID.Valid {
		id := task.CategoryID.UUID.String()
		res.CategoryID = &id
	}

	if task.AssignedTo.Valid {
		id := task.AssignedTo.UUID.String()
		res.AssignedTo = &id
	}

	if task.Category != nil {
		res.CategoryName = task.Category.Name
		res.CategoryColor = task.Category.Color
	}

	if task.Assignee != nil {
		res.AssigneeName = task.Assignee.DisplayName
	}

	for _, name := range task.Tags {
		res.Tags = append(res.Tags, Tag{Name: name})
	}

	return res
}

func newTasks(tasks []internal.Task) []Task {
	res := make([]Task, 0, len(tasks))

	for _, task := range tasks {
		res = append(res, NewTask(task))
	}

	return res
}

// optionalID tracks whether a nullable identifier was present in the request
// body at all; an explicit null clears the stored reference.
type optionalID struct {
	present bool
	value   uuid.NullUUID
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.present = true

	if string(b) == "null" {
		return nil
	}

	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}

	o.value = uuid.NullUUID{UUID: id, Valid: true}

	return nil
}

func (o optionalID) convert() internal.OptionalID {
	return internal.OptionalID{
		Present: o.present,
		Value:   o.value,
	}
}

// CreateTaskRequest defines the request used for creating tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     time.Time  `json:"dueDate"`
	Progress    int        `json:"progress"`
	CategoryID  *uuid.UUID `json:"categoryId"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	Tags        []string   `json:"tags"`
}

func (req CreateTaskRequest) convert() internal.CreateTaskParams {
	params := internal.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    internal.Priority(req.Priority),
		DueDate:     req.DueDate,
		Progress:    req.Progress,
		Tags:        req.Tags,
	}

	if req.CategoryID != nil {
		params.CategoryID = uuid.NullUUID{UUID: *req.CategoryID, Valid: true}
	}

	if req.AssignedTo != nil {
		params.AssignedTo = uuid.NullUUID{UUID: *req.AssignedTo, Valid: true}
	}

	return params
}

// UpdateTaskRequest defines the request used for updating a task, only the
// fields present in the body are applied.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Completed   *bool      `json:"completed"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Progress    *int       `json:"progress"`
	CategoryID  optionalID `json:"categoryId"`
	AssignedTo  optionalID `json:"assignedTo"`
	Tags        *[]string  `json:"tags"`
}

func (req UpdateTaskRequest) convert() internal.TaskPatch {
	patch := internal.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		DueDate:     req.DueDate,
		Progress:    req.Progress,
		CategoryID:  req.CategoryID.convert(),
		AssignedTo:  req.AssignedTo.convert(),
		Tags:        req.Tags,
	}

	if req.Priority != nil {
		priority := internal.Priority(*req.Priority)
		patch.Priority = &priority
	}

	return patch
}

// BulkUpdateTasksRequest defines the request used for updating tasks in batch.
type BulkUpdateTasksRequest struct {
	Tasks []BulkUpdateTaskItem `json:"tasks"`
}

// BulkUpdateTaskItem is one entry of a batch update.
type BulkUpdateTaskItem struct {
	ID uuid.UUID `json:"id"`
	UpdateTaskRequest
}

func (t *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	params, err := parseSearchParams(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid query", err)
		return
	}

	res, err := t.svc.By(r.Context(), owner.ID, params)
	if err != nil {
		renderErrorResponse(r.Context(), w, "list failed", err)
		return
	}

	params = params.WithDefaults()
	renderPaginatedResponse(w, newTasks(res.Tasks), internal.NewPagination(params.Page, params.Limit, res.Total))
}

func parseSearchParams(r *http.Request) (internal.SearchParams, error) {
	var params internal.SearchParams

	q := r.URL.Query()

	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return params, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "completed")
		}

		params.Completed = &completed
	}

	if v := q.Get("priority"); v != "" {
		priority := internal.Priority(v)
		params.Priority = &priority
	}

	if v := q.Get("categoryId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return params, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "categoryId")
		}

		params.CategoryID = &id
	}

	if v := q.Get("assignedTo"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return params, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "assignedTo")
		}

		params.AssignedTo = &id
	}

	params.Search = q.Get("search")

	if v := q.Get("page"); v != "" {
		page, err := strconv.ParseInt(v, 10, 64)
		if err != nil || page < 1 {
			return params, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "page must be a positive integer")
		}

		params.Page = page
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || limit < 1 {
			return params, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "limit must be a positive integer")
		}

		params.Limit = limit
	}

	params.SortBy = internal.SortField(q.Get("sortBy"))
	params.SortOrder = internal.SortOrder(q.Get("sortOrder"))

	return params, nil
}

func (t *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	task, err := t.svc.Create(r.Context(), owner.ID, req.convert())
	if err != nil {
		renderErrorResponse(r.Context(), w, "create failed", err)
		return
	}

	renderResponse(w, NewTask(task), http.StatusCreated)
}

func (t *TaskHandler) find(w http.ResponseWriter, r *http.Request) {
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

	task, err := t.svc.Task(r.Context(), owner.ID, id)
	if err != nil {
		renderErrorResponse(r.Context(), w, "task not found", err)
		return
	}

	renderResponse(w, NewTask(task), http.StatusOK)
}

func (t *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	task, err := t.svc.Update(r.Context(), owner.ID, id, req.convert())
	if err != nil {
		renderErrorResponse(r.Context(), w, "update failed", err)
		return
	}

	renderResponse(w, NewTask(task), http.StatusOK)
}

func (t *TaskHandler) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		renderErrorResponse(r.Context(), w, "missing identity", internal.NewErrorf(internal.ErrorCodeUnauthorized, "missing identity"))
		return
	}

	var req BulkUpdateTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	patches := make([]internal.BulkTaskPatch, 0, len(req.Tasks))
	for _, item := range req.Tasks {
		patches = append(patches, internal.BulkTaskPatch{
			ID:    item.ID,
			Patch: item.convert(),
		})
	}

	tasks, err := t.svc.BulkUpdate(r.Context(), owner.ID, patches)
	if err != nil {
		// The batch aborts on the first failing task; the wrapped message
		// names its id so the caller knows which entry to correct.
		msg := "bulk update failed"

		var ierr *internal.Error
		if errors.As(err, &ierr) {
			msg = ierr.Error()
		}

		renderErrorResponse(r.Context(), w, msg, err)

		return
	}

	renderResponse(w, newTasks(tasks), http.StatusOK)
}

func (t *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
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

	if err := t.svc.Delete(r.Context(), owner.ID, id); err != nil {
		renderErrorResponse(r.Context(), w, "delete failed", err)
		return
	}

	renderResponse(w, nil, http.StatusOK)
}

func (t *TaskHandler) toggle(w http.ResponseWriter, r *http.Request) {
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

	task, err := t.svc.ToggleCompleted(r.Context(), owner.ID, id)
	if err != nil {
		renderErrorResponse(r.Context(), w, "toggle failed", err)
		return
	}

	renderResponse(w, NewTask(task), http.StatusOK)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "invalid id")
	}

	return id, nil
}
