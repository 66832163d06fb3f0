package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/tasks-api/internal"
)

func TestBuildTaskFilter(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	newBool := func(b bool) *bool { return &b }
	newPriority := func(p internal.Priority) *internal.Priority { return &p }
	newUUID := func(id uuid.UUID) *uuid.UUID { return &id }

	t.Run("owner scope only", func(t *testing.T) {
		t.Parallel()

		where, args := buildTaskFilter(ownerID, internal.SearchParams{})

		assert.Equal(t, "t.user_id = $1", where)
		require.Len(t, args, 1)
		assert.Equal(t, ownerID, args[0])
	})

	t.Run("filters are conjunctive and ordinals follow the argument list", func(t *testing.T) {
		t.Parallel()

		categoryID := uuid.New()

		where, args := buildTaskFilter(ownerID, internal.SearchParams{
			Completed:  newBool(true),
			Priority:   newPriority(internal.PriorityHigh),
			CategoryID: newUUID(categoryID),
		})

		assert.Equal(t, "t.user_id = $1 AND t.completed = $2 AND t.priority = $3 AND t.category_id = $4", where)
		require.Len(t, args, 4)
		assert.Equal(t, ownerID, args[0])
		assert.Equal(t, true, args[1])
		assert.Equal(t, "high", args[2])
		assert.Equal(t, categoryID, args[3])
	})

	t.Run("search matches title or description with one bound argument", func(t *testing.T) {
		t.Parallel()

		where, args := buildTaskFilter(ownerID, internal.SearchParams{Search: "report"})

		assert.Equal(t, "t.user_id = $1 AND (t.title ILIKE $2 OR t.description ILIKE $2)", where)
		require.Len(t, args, 2)
		assert.Equal(t, "%report%", args[1])
	})

	t.Run("search term is never interpolated", func(t *testing.T) {
		t.Parallel()

		where, _ := buildTaskFilter(ownerID, internal.SearchParams{Search: "'; DROP TABLE tasks; --"})

		assert.NotContains(t, where, "DROP TABLE")
	})
}

func TestBuildTaskOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params internal.SearchParams
		want   string
	}{
		{
			name:   "default listing",
			params: internal.SearchParams{}.WithDefaults(),
			want:   "ORDER BY t.created_at DESC, t.id ASC",
		},
		{
			name:   "due date ascending",
			params: internal.SearchParams{SortBy: internal.SortByDueDate, SortOrder: internal.SortAscending},
			want:   "ORDER BY t.due_date ASC, t.id ASC",
		},
		{
			name:   "title descending",
			params: internal.SearchParams{SortBy: internal.SortByTitle, SortOrder: internal.SortDescending},
			want:   "ORDER BY t.title DESC, t.id ASC",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, buildTaskOrder(tt.params))
		})
	}
}

func TestBuildTaskUpdate(t *testing.T) {
	t.Parallel()

	id, ownerID := uuid.New(), uuid.New()

	newStr := func(s string) *string { return &s }
	newInt := func(i int) *int { return &i }

	t.Run("single field", func(t *testing.T) {
		t.Parallel()

		query, args := buildTaskUpdate(id, ownerID, internal.TaskPatch{Title: newStr("renamed")})

		assert.Equal(t, "UPDATE tasks SET updated_at = now(), title = $1 WHERE id = $2 AND user_id = $3", query)
		require.Len(t, args, 3)
		assert.Equal(t, "renamed", args[0])
		assert.Equal(t, id, args[1])
		assert.Equal(t, ownerID, args[2])
	})

	t.Run("multiple fields keep declaration order", func(t *testing.T) {
		t.Parallel()

		due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
		patch := internal.TaskPatch{
			Title:    newStr("renamed"),
			DueDate:  &due,
			Progress: newInt(80),
		}

		query, args := buildTaskUpdate(id, ownerID, patch)

		assert.Equal(t,
			"UPDATE tasks SET updated_at = now(), title = $1, due_date = $2, progress = $3 WHERE id = $4 AND user_id = $5",
			query)
		require.Len(t, args, 5)
	})

	t.Run("explicit null clears the foreign key", func(t *testing.T) {
		t.Parallel()

		query, args := buildTaskUpdate(id, ownerID, internal.TaskPatch{
			CategoryID: internal.OptionalID{Present: true},
		})

		assert.Equal(t, "UPDATE tasks SET updated_at = now(), category_id = $1 WHERE id = $2 AND user_id = $3", query)
		require.Len(t, args, 3)
		assert.Equal(t, uuid.NullUUID{}, args[0])
	})

	t.Run("tags only still bumps updated_at", func(t *testing.T) {
		t.Parallel()

		query, args := buildTaskUpdate(id, ownerID, internal.TaskPatch{Tags: &[]string{"home"}})

		assert.Equal(t, "UPDATE tasks SET updated_at = now() WHERE id = $1 AND user_id = $2", query)
		require.Len(t, args, 2)
	})
}

func TestSortColumnsCoverSortFields(t *testing.T) {
	t.Parallel()

	fields := []internal.SortField{
		internal.SortByCreatedAt,
		internal.SortByUpdatedAt,
		internal.SortByTitle,
		internal.SortByPriority,
		internal.SortByDueDate,
		internal.SortByProgress,
	}

	for _, field := range fields {
		_, ok := sortColumns[field]
		assert.True(t, ok, "missing sort column for %q", field)
	}
}

// execRecorderTx records every Exec issued through it; the embedded pgx.Tx
// panics if anything beyond Exec is reached.
type execRecorderTx struct {
	pgx.Tx

	execs []recordedExec
}

type recordedExec struct {
	sql  string
	args []interface{}
}

func (f *execRecorderTx) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})

	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func TestUpdateTask_TagReplacement(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	id := uuid.New()

	t.Run("present tags are fully replaced", func(t *testing.T) {
		t.Parallel()

		tx := &execRecorderTx{}
		tags := []string{"b", "c"}

		err := updateTask(context.Background(), tx, ownerID, id, internal.TaskPatch{Tags: &tags})
		require.NoError(t, err)

		require.Len(t, tx.execs, 4)
		assert.Contains(t, tx.execs[0].sql, "UPDATE tasks SET")
		assert.Equal(t, "DELETE FROM task_tags WHERE task_id = $1", tx.execs[1].sql)
		assert.Equal(t, []interface{}{id}, tx.execs[1].args)
		assert.Equal(t, []interface{}{id, "b"}, tx.execs[2].args)
		assert.Equal(t, []interface{}{id, "c"}, tx.execs[3].args)
	})

	t.Run("empty list clears every tag", func(t *testing.T) {
		t.Parallel()

		tx := &execRecorderTx{}
		tags := []string{}

		err := updateTask(context.Background(), tx, ownerID, id, internal.TaskPatch{Tags: &tags})
		require.NoError(t, err)

		require.Len(t, tx.execs, 2)
		assert.Equal(t, "DELETE FROM task_tags WHERE task_id = $1", tx.execs[1].sql)
	})

	t.Run("absent tags leave the join table untouched", func(t *testing.T) {
		t.Parallel()

		tx := &execRecorderTx{}
		title := "renamed"

		err := updateTask(context.Background(), tx, ownerID, id, internal.TaskPatch{Title: &title})
		require.NoError(t, err)

		require.Len(t, tx.execs, 1)
		assert.Contains(t, tx.execs[0].sql, "UPDATE tasks SET")
	})

	t.Run("duplicate tags are inserted once", func(t *testing.T) {
		t.Parallel()

		tx := &execRecorderTx{}
		tags := []string{"b", "b", "c"}

		err := updateTask(context.Background(), tx, ownerID, id, internal.TaskPatch{Tags: &tags})
		require.NoError(t, err)

		require.Len(t, tx.execs, 4)
	})
}
