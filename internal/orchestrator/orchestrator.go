// Package orchestrator drives one analysis task through its lifecycle:
// pending -> processing -> completed | error. It owns the idempotency
// check, the provider pipeline, and the progressive store updates.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/chapters"
	"github.com/codebuildervaibhav/media-chapters/internal/media"
	"github.com/codebuildervaibhav/media-chapters/internal/storage"
	"github.com/codebuildervaibhav/media-chapters/internal/summarize"
	"github.com/codebuildervaibhav/media-chapters/internal/transcript"
	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// MetadataResolver resolves display metadata for a media URL.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) (media.Metadata, error)
}

// Options tunes the orchestrator.
type Options struct {
	ChapterSeconds int
	TitleWords     int
	MaxConcurrent  int
}

// Orchestrator runs one background goroutine per in-flight analysis.
// Analyses for distinct ids run concurrently up to MaxConcurrent; a second
// start for the same id attaches to the existing record instead of
// spawning a duplicate worker.
type Orchestrator struct {
	store    *storage.TaskStore
	source   transcript.Source
	titler   summarize.Titler
	metadata MetadataResolver
	export   *storage.LocalExport
	drive    *storage.DriveClient
	opts     Options

	sem chan struct{}
	wg  sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New wires an orchestrator from explicitly constructed collaborators.
// export and drive may be nil; everything else is required.
func New(store *storage.TaskStore, source transcript.Source, titler summarize.Titler, metadata MetadataResolver, export *storage.LocalExport, drive *storage.DriveClient, opts Options) *Orchestrator {
	if opts.ChapterSeconds <= 0 {
		opts.ChapterSeconds = 120
	}
	if opts.TitleWords <= 0 {
		opts.TitleWords = 6
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Orchestrator{
		store:    store,
		source:   source,
		titler:   titler,
		metadata: metadata,
		export:   export,
		drive:    drive,
		opts:     opts,
		sem:      make(chan struct{}, opts.MaxConcurrent),
		inflight: make(map[string]struct{}),
	}
}

// Start begins (or attaches to) the analysis of a media URL. It returns
// the current task record immediately; cached reports whether the record
// was already completed and no work was scheduled.
func (o *Orchestrator) Start(ctx context.Context, rawURL string) (task types.Task, cached bool, err error) {
	id := media.DeriveID(rawURL)

	task, err = o.store.CreateOrGet(ctx, id)
	if err != nil {
		return types.Task{}, false, err
	}

	if task.Status == types.StatusCompleted {
		return task, true, nil
	}

	o.mu.Lock()
	if _, running := o.inflight[id]; running {
		o.mu.Unlock()
		return task, false, nil
	}
	o.inflight[id] = struct{}{}
	o.mu.Unlock()

	o.update(id, types.StatusProcessing, "fetching metadata", nil)
	task.Status = types.StatusProcessing
	task.Message = "fetching metadata"

	o.wg.Add(1)
	go o.run(id, rawURL)

	return task, false, nil
}

// Wait blocks until every in-flight analysis has finished. Used by the
// batch driver and by graceful shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// run executes the full pipeline for one task. It must never crash the
// host process: panics become task errors.
func (o *Orchestrator) run(id, rawURL string) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.inflight, id)
		o.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC analyzing task %s: %v\n%s", id, r, string(debug.Stack()))
			o.update(id, types.StatusError, fmt.Sprintf("internal error: %v", r), nil)
		}
	}()

	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	ctx := context.Background()

	var meta media.Metadata
	if m, err := o.metadata.Resolve(ctx, rawURL); err != nil {
		// Metadata is cosmetic; the transcript step still runs.
		log.Printf("Metadata lookup failed for task %s: %v", id, err)
	} else {
		meta = m
	}

	o.update(id, types.StatusProcessing, "acquiring transcript", nil)

	utterances, err := o.source.Fetch(ctx, id, rawURL)
	if err != nil {
		if errors.Is(err, types.ErrNoTranscript) {
			o.update(id, types.StatusError, "no transcript could be obtained from any provider", nil)
		} else {
			o.update(id, types.StatusError, fmt.Sprintf("transcript acquisition failed: %v", err), nil)
		}
		return
	}

	o.update(id, types.StatusProcessing, "generating chapter titles", nil)

	drafts := chapters.Segment(utterances, float64(o.opts.ChapterSeconds))
	if len(drafts) == 0 {
		o.update(id, types.StatusError, "no transcript could be obtained from any provider", nil)
		return
	}

	result := &types.AnalysisResult{
		Title:        meta.Title,
		ThumbnailURL: meta.ThumbnailURL,
		Chapters:     make([]types.Chapter, 0, len(drafts)),
	}

	for _, draft := range drafts {
		title, err := o.titler.Title(ctx, draft.Text)
		if err != nil {
			// A single title failure never fails the chapter or the task.
			log.Printf("Title generation failed for task %s at %s: %v", id, chapters.FormatTimestamp(draft.StartSeconds), err)
			title = summarize.FallbackTitle(draft.Text, o.opts.TitleWords)
		}
		result.Chapters = append(result.Chapters, types.Chapter{
			StartTime: chapters.FormatTimestamp(draft.StartSeconds),
			Title:     title,
		})
	}

	o.update(id, types.StatusCompleted, "analysis complete", result)
	log.Printf("Task %s completed with %d chapters", id, len(result.Chapters))

	o.exportResult(id, result)
}

// exportResult mirrors a completed result locally and to Drive. Both are
// best-effort; failures never change the task's completed status.
func (o *Orchestrator) exportResult(id string, result *types.AnalysisResult) {
	if o.export != nil {
		if path, err := o.export.SaveResult(id, result); err != nil {
			log.Printf("Local export failed for task %s: %v", id, err)
		} else {
			log.Printf("Task %s exported to %s", id, path)
		}
	}

	if o.drive != nil {
		if url, err := o.uploadWithRetry(id, result); err != nil {
			log.Printf("WARNING: Drive upload failed for task %s after retries: %v", id, err)
		} else {
			log.Printf("Task %s uploaded to %s", id, url)
		}
	}
}

// uploadWithRetry retries the Drive upload a few times before giving up.
func (o *Orchestrator) uploadWithRetry(id string, result *types.AnalysisResult) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		url, err := o.drive.Upload(id, result)
		if err == nil {
			return url, nil
		}
		lastErr = err
		log.Printf("Drive upload attempt %d/3 failed for task %s: %v", attempt, id, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	return "", lastErr
}

// update writes a task transition. Store failures here are logged and
// swallowed: the in-memory attempt continues and the persisted status may
// lag, which is an accepted degradation.
func (o *Orchestrator) update(id, status, message string, result *types.AnalysisResult) {
	if err := o.store.Update(context.Background(), id, status, message, result); err != nil {
		log.Printf("Failed to persist status %s for task %s: %v", status, id, err)
	}
}
