package types

import (
	"errors"
	"time"
)

// Task status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Error taxonomy shared across the pipeline. Callers branch on these
// with errors.Is.
var (
	// ErrStoreUnavailable means the task store could not be reached.
	ErrStoreUnavailable = errors.New("task store unavailable")

	// ErrTaskNotFound is returned for lookups of unknown task ids.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoTranscript means neither provider could produce any utterances.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrRateLimited marks a transient speech-provider rejection worth retrying.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrCaptionsUnavailable means the caption provider has no track at all.
	ErrCaptionsUnavailable = errors.New("no caption track available")
)

// Task is the durable record of one analysis lifecycle.
type Task struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Result    *AnalysisResult `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsDone reports whether the task reached a terminal state.
func (t *Task) IsDone() bool {
	return t.Status == StatusCompleted || t.Status == StatusError
}

// AnalysisResult is the immutable outcome of a completed analysis.
type AnalysisResult struct {
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Chapters     []Chapter `json:"chapters"`
}

// Chapter is one titled entry of the table of contents.
type Chapter struct {
	StartTime string `json:"start_time"` // "HH:MM:SS"
	Title     string `json:"title"`
}

// Utterance is one timestamped span of recognized speech, ordered by Start.
type Utterance struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
