package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// TaskStore persists Task records in SQLite. Rows are keyed by the derived
// media id, so resubmitting the same source lands on the same record.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore opens (or creates) the task database.
func NewTaskStore(dbPath string) (*TaskStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		result TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_updated_at ON tasks(updated_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &TaskStore{db: db}, nil
}

// CreateOrGet returns the existing task for id, creating a pending record
// when none exists. Concurrent calls for the same id converge on one row.
func (ts *TaskStore) CreateOrGet(ctx context.Context, id string) (types.Task, error) {
	now := time.Now().UTC()

	_, err := ts.db.ExecContext(ctx, `
	INSERT INTO tasks (id, status, message, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
	`, id, types.StatusPending, "queued for analysis", now, now)
	if err != nil {
		return types.Task{}, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	return ts.Get(ctx, id)
}

// Update overwrites status and message, bumps updated_at, and sets the
// result only when one is provided (the completed transition).
func (ts *TaskStore) Update(ctx context.Context, id, status, message string, result *types.AnalysisResult) error {
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %v", err)
		}
		_, err = ts.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, message = ?, result = ?, updated_at = ? WHERE id = ?
		`, status, message, string(data), time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
		}
		return nil
	}

	_, err := ts.db.ExecContext(ctx, `
	UPDATE tasks SET status = ?, message = ?, updated_at = ? WHERE id = ?
	`, status, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	return nil
}

// Get looks up one task by id.
func (ts *TaskStore) Get(ctx context.Context, id string) (types.Task, error) {
	row := ts.db.QueryRowContext(ctx, `
	SELECT id, status, message, result, created_at, updated_at FROM tasks WHERE id = ?
	`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Task{}, types.ErrTaskNotFound
	}
	if err != nil {
		return types.Task{}, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	return task, nil
}

// List returns the most recently updated tasks.
func (ts *TaskStore) List(ctx context.Context, limit int) ([]types.Task, error) {
	rows, err := ts.db.QueryContext(ctx, `
	SELECT id, status, message, result, created_at, updated_at
	FROM tasks ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// Close closes the database connection.
func (ts *TaskStore) Close() error {
	return ts.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (types.Task, error) {
	var (
		task      types.Task
		resultRaw sql.NullString
	)

	err := row.Scan(&task.ID, &task.Status, &task.Message, &resultRaw, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return types.Task{}, err
	}

	if resultRaw.Valid && resultRaw.String != "" {
		var result types.AnalysisResult
		if err := json.Unmarshal([]byte(resultRaw.String), &result); err != nil {
			return types.Task{}, fmt.Errorf("unmarshal result: %v", err)
		}
		task.Result = &result
	}

	return task, nil
}
