package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const baseURL = "http://0.0.0.0:9234/api"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func main() {
	initTracer()

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	ctx := context.Background()

	suffix := time.Now().UnixNano()

	var auth struct {
		Token string `json:"token"`
	}

	if err := do(ctx, client, "", http.MethodPost, "/auth/register", map[string]interface{}{
		"username": fmt.Sprintf("smoke%d", suffix),
		"email":    fmt.Sprintf("smoke%d@example.com", suffix),
		"password": "hunter22",
	}, &auth); err != nil {
		log.Fatalf("Couldn't register: %s", err)
	}

	fmt.Println("Registered, token received")

	var task struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Priority string `json:"priority"`
		Progress int    `json:"progress"`
	}

	if err := do(ctx, client, auth.Token, http.MethodPost, "/tasks", map[string]interface{}{
		"title":    "Sleep early",
		"priority": "low",
		"dueDate":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"tags":     []string{"health"},
	}, &task); err != nil {
		log.Fatalf("Couldn't create task: %s", err)
	}

	fmt.Printf("New Task\n\tID: %s\n\tTitle: %s\n\tPriority: %s\n", task.ID, task.Title, task.Priority)

	if err := do(ctx, client, auth.Token, http.MethodPut, "/tasks/"+task.ID, map[string]interface{}{
		"priority": "high",
		"progress": 50,
	}, &task); err != nil {
		log.Fatalf("Couldn't update task: %s", err)
	}

	fmt.Printf("Updated Task\n\tPriority: %s\n\tProgress: %d\n", task.Priority, task.Progress)

	if err := do(ctx, client, auth.Token, http.MethodGet, "/tasks/"+task.ID, nil, &task); err != nil {
		log.Fatalf("Couldn't read task: %s", err)
	}

	fmt.Printf("Read Task\n\tID: %s\n\tTitle: %s\n", task.ID, task.Title)

	time.Sleep(10 * time.Second)
}

func do(ctx context.Context, client *http.Client, token, method, path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("json.Encode: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	var env envelope

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}

	if !env.Success {
		return fmt.Errorf("%s %s: %s (%d)", method, path, env.Error, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}
	}

	return nil
}

// initTracer initializes OpenTelemetry tracing with Jaeger and stdout exporters.
func initTracer() {
	jaegerEndpoint := "http://localhost:14268/api/traces"

	jaegerExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		log.Fatalln("Couldn't initialize jaeger exporter:", err)
	}

	stdoutExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalln("Couldn't initialize stdout exporter:", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(stdoutExporter),
		sdktrace.WithBatcher(jaegerExporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
}
