package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhive/tasks-api/internal"
)

// taskColumns is the joined row shape every task read returns: the task row
// plus its category's name/color and its assignee's names.
const taskColumns = `t.id, t.user_id, t.title, t.description, t.completed, t.priority,
	t.due_date, t.progress, t.category_id, t.assigned_to, t.created_at, t.updated_at,
	c.name, c.color, u.username, u.first_name, u.last_name`

const taskFrom = `FROM tasks t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN users u ON u.id = t.assigned_to`

// sortColumns whitelists the sortable fields; anything else is rejected
// during validation and never reaches SQL text.
var sortColumns = map[internal.SortField]string{
	internal.SortByCreatedAt: "t.created_at",
	internal.SortByUpdatedAt: "t.updated_at",
	internal.SortByTitle:     "t.title",
	internal.SortByPriority:  "t.priority",
	internal.SortByDueDate:   "t.due_date",
	internal.SortByProgress:  "t.progress",
}

// Task represents the repository used for interacting with Task records.
type Task struct {
	pool *pgxpool.Pool
}

// NewTask instantiates the Task repository.
func NewTask(pool *pgxpool.Pool) *Task {
	return &Task{
		pool: pool,
	}
}

// buildTaskFilter composes the conjunctive WHERE fragment and its positional
// arguments. The owner predicate is unconditional and always first.
func buildTaskFilter(ownerID uuid.UUID, params internal.SearchParams) (string, []interface{}) {
	clauses := []string{"t.user_id = $1"}
	args := []interface{}{ownerID}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if params.Completed != nil {
		add("t.completed = $%d", *params.Completed)
	}

	if params.Priority != nil {
		add("t.priority = $%d", string(*params.Priority))
	}

	if params.CategoryID != nil {
		add("t.category_id = $%d", *params.CategoryID)
	}

	if params.AssignedTo != nil {
		add("t.assigned_to = $%d", *params.AssignedTo)
	}

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(t.title ILIKE $%d OR t.description ILIKE $%d)", n, n))
	}

	return strings.Join(clauses, " AND "), args
}

// buildTaskOrder renders the ORDER BY fragment. The id tie-break keeps
// pagination deterministic when sort keys collide.
func buildTaskOrder(params internal.SearchParams) string {
	dir := "DESC"
	if params.SortOrder == internal.SortAscending {
		dir = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s, t.id ASC", sortColumns[params.SortBy], dir)
}

// Search returns the page of tasks matching the received filters together
// with the total number of matches, scoped to the owner.
func (t *Task) Search(ctx context.Context, ownerID uuid.UUID, params internal.SearchParams) (internal.SearchResults, error) {
	defer newOTELSpan(ctx, "Task.Search").End()

	where, args := buildTaskFilter(ownerID, params)

	var total int64
	if err := t.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks t WHERE "+where, args...).Scan(&total); err != nil {
		return internal.SearchResults{}, translateError(err, "count tasks")
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s %s LIMIT $%d OFFSET $%d",
		taskColumns, taskFrom, where, buildTaskOrder(params), len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset())

	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return internal.SearchResults{}, translateError(err, "select tasks")
	}
	defer rows.Close()

	var tasks []internal.Task

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return internal.SearchResults{}, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return internal.SearchResults{}, translateError(err, "rows")
	}

	if err := t.attachTags(ctx, tasks); err != nil {
		return internal.SearchResults{}, err
	}

	return internal.SearchResults{
		Tasks: tasks,
		Total: total,
	}, nil
}

// Find returns the task matching id, owned by ownerID. A task owned by
// somebody else is indistinguishable from a missing one.
func (t *Task) Find(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Find").End()

	return findTask(ctx, t.pool, ownerID, id)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findTask(ctx context.Context, q querier, ownerID, id uuid.UUID) (internal.Task, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE t.id = $1 AND t.user_id = $2", taskColumns, taskFrom)

	task, err := scanTask(q.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.Task{}, internal.WrapErrorf(err, internal.ErrorCodeNotFound, "task not found")
		}

		return internal.Task{}, err
	}

	rows, err := q.Query(ctx, "SELECT name FROM task_tags WHERE task_id = $1 ORDER BY name", id)
	if err != nil {
		return internal.Task{}, translateError(err, "select tags")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return internal.Task{}, translateError(err, "scan tag")
		}

		task.Tags = append(task.Tags, name)
	}

	if err := rows.Err(); err != nil {
		return internal.Task{}, translateError(err, "rows")
	}

	return task, nil
}

// Create inserts the task and its tag associations atomically and returns
// the joined record.
func (t *Task) Create(ctx context.Context, ownerID uuid.UUID, params internal.CreateTaskParams) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Create").End()

	var id uuid.UUID

	err := inTx(ctx, t.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO tasks (title, description, priority, due_date, progress, category_id, assigned_to, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			params.Title,
			params.Description,
			string(params.Priority),
			params.DueDate,
			params.Progress,
			params.CategoryID,
			params.AssignedTo,
			ownerID,
		).Scan(&id); err != nil {
			return translateError(err, "insert task")
		}

		return insertTags(ctx, tx, id, params.Tags)
	})
	if err != nil {
		return internal.Task{}, err
	}

	return t.Find(ctx, ownerID, id)
}

// Update applies a partial update, replacing the tag set when one is present.
// The whole mutation is atomic.
func (t *Task) Update(ctx context.Context, ownerID, id uuid.UUID, patch internal.TaskPatch) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Update").End()

	err := inTx(ctx, t.pool, func(tx pgx.Tx) error {
		return updateTask(ctx, tx, ownerID, id, patch)
	})
	if err != nil {
		return internal.Task{}, err
	}

	return t.Find(ctx, ownerID, id)
}

// buildTaskUpdate renders the dynamic SET fragment from the present patch
// fields; updated_at is always bumped. Values are bound as parameters, the
// column list is fixed in code.
func buildTaskUpdate(id, ownerID uuid.UUID, patch internal.TaskPatch) (string, []interface{}) {
	assignments := []string{"updated_at = now()"}
	args := []interface{}{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}

	if patch.Description != nil {
		set("description", *patch.Description)
	}

	if patch.Completed != nil {
		set("completed", *patch.Completed)
	}

	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}

	if patch.DueDate != nil {
		set("due_date", *patch.DueDate)
	}

	if patch.Progress != nil {
		set("progress", *patch.Progress)
	}

	if patch.CategoryID.Present {
		set("category_id", patch.CategoryID.Value)
	}

	if patch.AssignedTo.Present {
		set("assigned_to", patch.AssignedTo.Value)
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(assignments, ", "), len(args)-1, len(args))

	return query, args
}

func updateTask(ctx context.Context, tx pgx.Tx, ownerID, id uuid.UUID, patch internal.TaskPatch) error {
	query, args := buildTaskUpdate(id, ownerID, patch)

	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err, "update task")
	}

	if res.RowsAffected() == 0 {
		return internal.NewErrorf(internal.ErrorCodeNotFound, "task not found")
	}

	if patch.Tags != nil {
		if _, err := tx.Exec(ctx, "DELETE FROM task_tags WHERE task_id = $1", id); err != nil {
			return translateError(err, "delete tags")
		}

		if err := insertTags(ctx, tx, id, *patch.Tags); err != nil {
			return err
		}
	}

	return nil
}

func insertTags(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, tags []string) error {
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		if _, err := tx.Exec(ctx, "INSERT INTO task_tags (task_id, name) VALUES ($1, $2)", taskID, tag); err != nil {
			return translateError(err, "insert tag")
		}
	}

	return nil
}

// BulkUpdate applies every patch in a single transaction: when any id does
// not resolve to a task owned by ownerID the whole batch is rolled back and
// the offending id is reported.
func (t *Task) BulkUpdate(ctx context.Context, ownerID uuid.UUID, patches []internal.BulkTaskPatch) error {
	defer newOTELSpan(ctx, "Task.BulkUpdate").End()

	return inTx(ctx, t.pool, func(tx pgx.Tx) error {
		for _, p := range patches {
			if err := updateTask(ctx, tx, ownerID, p.ID, p.Patch); err != nil {
				return wrapWithID(err, p.ID)
			}
		}

		return nil
	})
}

func wrapWithID(err error, id uuid.UUID) error {
	code := internal.ErrorCodeUnknown

	var ierr *internal.Error
	if errors.As(err, &ierr) {
		code = ierr.Code()
	}

	return internal.WrapErrorf(err, code, "task %s", id)
}

// Delete removes the owned task; tag associations cascade with it.
func (t *Task) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	defer newOTELSpan(ctx, "Task.Delete").End()

	res, err := t.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return translateError(err, "delete task")
	}

	if res.RowsAffected() == 0 {
		return internal.NewErrorf(internal.ErrorCodeNotFound, "task not found")
	}

	return nil
}

// ToggleCompleted flips the completion flag in place.
func (t *Task) ToggleCompleted(ctx context.Context, ownerID, id uuid.UUID) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.ToggleCompleted").End()

	res, err := t.pool.Exec(ctx,
		"UPDATE tasks SET completed = NOT completed, updated_at = now() WHERE id = $1 AND user_id = $2",
		id, ownerID)
	if err != nil {
		return internal.Task{}, translateError(err, "toggle task")
	}

	if res.RowsAffected() == 0 {
		return internal.Task{}, internal.NewErrorf(internal.ErrorCodeNotFound, "task not found")
	}

	return t.Find(ctx, ownerID, id)
}

// attachTags loads the tag sets for the received page of tasks in one query.
func (t *Task) attachTags(ctx context.Context, tasks []internal.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tasks))
	index := make(map[uuid.UUID]int, len(tasks))

	for i := range tasks {
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = i
	}

	rows, err := t.pool.Query(ctx, "SELECT task_id, name FROM task_tags WHERE task_id = ANY($1) ORDER BY name", ids)
	if err != nil {
		return translateError(err, "select tags")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID uuid.UUID
			name   string
		)

		if err := rows.Scan(&taskID, &name); err != nil {
			return translateError(err, "scan tag")
		}

		i := index[taskID]
		tasks[i].Tags = append(tasks[i].Tags, name)
	}

	if err := rows.Err(); err != nil {
		return translateError(err, "rows")
	}

	return nil
}

func scanTask(row pgx.Row) (internal.Task, error) {
	var (
		task         internal.Task
		priority     string
		categoryName pgtype.Text
		categoryCol  pgtype.Text
		username     pgtype.Text
		firstName    pgtype.Text
		lastName     pgtype.Text
	)

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&priority,
		&task.DueDate,
		&task.Progress,
		&task.CategoryID,
		&task.AssignedTo,
		&task.CreatedAt,
		&task.UpdatedAt,
		&categoryName,
		&categoryCol,
		&username,
		&firstName,
		&lastName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.Task{}, err
		}

		return internal.Task{}, translateError(err, "scan task")
	}

	task.Priority = internal.Priority(priority)

	if categoryName.Valid {
		task.Category = &internal.CategoryRef{
			Name:  categoryName.String,
			Color: categoryCol.String,
		}
	}

	if username.Valid {
		assignee := internal.User{
			Username:  username.String,
			FirstName: firstName.String,
			LastName:  lastName.String,
		}

		task.Assignee = &internal.AssigneeRef{
			Username:    assignee.Username,
			DisplayName: assignee.DisplayName(),
		}
	}

	return task, nil
}
