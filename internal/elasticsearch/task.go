package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	esv7 "github.com/elastic/go-elasticsearch/v7"
	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"
)

const otelName = "github.com/taskhive/tasks-api/internal/elasticsearch"

// Task represents the repository used for indexing Task records. The index
// is a sidecar fed by the task events; documents carry the owner so any
// future queries stay scoped.
type Task struct {
	client *esv7.Client
	index  string
}

type indexedTask struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	Title     string            `json:"title"`
	Details   string            `json:"description"`
	Priority  internal.Priority `json:"priority"`
	Completed bool              `json:"completed"`
	Progress  int               `json:"progress"`
	DueDate   int64             `json:"due_date"`
	Tags      []string          `json:"tags"`
}

// NewTask instantiates the Task repository.
func NewTask(client *esv7.Client) *Task {
	return &Task{
		client: client,
		index:  "tasks",
	}
}

// Index creates or updates a task document.
func (t *Task) Index(ctx context.Context, task internal.Task) error {
	defer newOTELSpan(ctx, "Task.Index").End()

	body := indexedTask{
		ID:        task.ID.String(),
		OwnerID:   task.OwnerID.String(),
		Title:     task.Title,
		Details:   task.Description,
		Priority:  task.Priority,
		Completed: task.Completed,
		Progress:  task.Progress,
		DueDate:   task.DueDate.UnixNano(),
		Tags:      task.Tags,
	}

	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewEncoder.Encode")
	}

	req := esv7api.IndexRequest{
		Index:      t.index,
		Body:       &buf,
		DocumentID: body.ID,
		Refresh:    "true",
	}

	resp, err := req.Do(ctx, t.client)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "IndexRequest.Do")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return internal.NewErrorf(internal.ErrorCodeUnknown, "IndexRequest.Do %d", resp.StatusCode)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	return nil
}

// Delete removes a task document.
func (t *Task) Delete(ctx context.Context, id uuid.UUID) error {
	defer newOTELSpan(ctx, "Task.Delete").End()

	req := esv7api.DeleteRequest{
		Index:      t.index,
		DocumentID: id.String(),
	}

	resp, err := req.Do(ctx, t.client)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "DeleteRequest.Do")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return internal.NewErrorf(internal.ErrorCodeUnknown, "DeleteRequest.Do %d", resp.StatusCode)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	return nil
}

func newOTELSpan(ctx context.Context, name string) trace.Span {
	_, span := otel.Tracer(otelName).Start(ctx, name)

	span.SetAttributes(semconv.DBSystemElasticsearch)

	return span
}
