package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-chapters/internal/media"
	"github.com/codebuildervaibhav/media-chapters/internal/orchestrator"
	"github.com/codebuildervaibhav/media-chapters/internal/storage"
	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

type stubSource struct{}

func (stubSource) Fetch(ctx context.Context, mediaID, sourceURL string) ([]types.Utterance, error) {
	return []types.Utterance{{Text: "hello from the stub", Start: 0, End: 10}}, nil
}

type stubTitler struct{}

func (stubTitler) Title(ctx context.Context, text string) (string, error) {
	return "Stub chapter", nil
}

type stubMetadata struct{}

func (stubMetadata) Resolve(ctx context.Context, rawURL string) (media.Metadata, error) {
	return media.Metadata{Title: "Stub video"}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *storage.TaskStore) {
	t.Helper()

	store, err := storage.NewTaskStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("NewTaskStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	o := orchestrator.New(store, stubSource{}, stubTitler{}, stubMetadata{}, nil, nil, orchestrator.Options{})

	app := fiber.New()
	app.Post("/analyze", NewAnalyzeHandler(o).Handle)
	tasksHandler := NewTasksHandler(store)
	app.Get("/tasks", tasksHandler.List)
	app.Get("/tasks/:id", tasksHandler.Get)

	return app, store
}

func postAnalyze(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestAnalyzeRequiresURL(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postAnalyze(t, app, `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeRejectsNonHTTPURL(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postAnalyze(t, app, `{"url":"ftp://example.com/file"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeAcceptsAndCompletes(t *testing.T) {
	app, store := newTestApp(t)

	resp := postAnalyze(t, app, `{"url":"https://youtu.be/abc123XYZ_-"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var accepted struct {
		TaskID  string `json:"task_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.TaskID != "abc123XYZ_-" {
		t.Errorf("task_id = %q", accepted.TaskID)
	}
	if accepted.Message != "started" {
		t.Errorf("message = %q", accepted.Message)
	}

	deadline := time.After(5 * time.Second)
	for {
		task, err := store.Get(context.Background(), accepted.TaskID)
		if err == nil && task.IsDone() {
			if task.Status != types.StatusCompleted {
				t.Fatalf("status = %q (%s)", task.Status, task.Message)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("task never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// A repeat start serves the cached result with 200.
	resp = postAnalyze(t, app, `{"url":"https://youtu.be/abc123XYZ_-"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat status = %d, want 200", resp.StatusCode)
	}
	var cached struct {
		Message string                `json:"message"`
		Result  *types.AnalysisResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cached); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cached.Message != "result served from cache" {
		t.Errorf("message = %q", cached.Message)
	}
	if cached.Result == nil || len(cached.Result.Chapters) == 0 {
		t.Fatalf("cached result = %+v", cached.Result)
	}
}

func TestGetUnknownTask(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks/unknown", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetTaskStatus(t *testing.T) {
	app, store := newTestApp(t)

	if _, err := store.CreateOrGet(context.Background(), "abc123"); err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tasks/abc123", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var task types.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Status != types.StatusPending {
		t.Errorf("status = %q, want pending", task.Status)
	}
}
