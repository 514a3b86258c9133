// Package transcript acquires a timestamped utterance sequence for a media
// source, trying a paid speech-to-text provider first and falling back to
// the free caption track when the primary cannot serve the source.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// Source yields the utterances for one media source.
type Source interface {
	Fetch(ctx context.Context, mediaID, sourceURL string) ([]types.Utterance, error)
}

// Downloader acquires the raw audio of a media URL as a temporary file.
type Downloader interface {
	Download(ctx context.Context, sourceURL string) (string, error)
}

// SpeechProvider transcribes a local audio file. Implementations signal a
// retryable rejection by wrapping types.ErrRateLimited.
type SpeechProvider interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]types.Utterance, error)
}

// CaptionProvider fetches an existing caption track for a media id,
// honoring the language preference order.
type CaptionProvider interface {
	Fetch(ctx context.Context, mediaID string, languages []string) ([]types.Utterance, error)
}

// Options tunes the adapter's retry and timeout behavior.
type Options struct {
	Language     string
	Languages    []string
	MaxAttempts  int
	BackoffBase  time.Duration
	PhaseTimeout time.Duration
}

// Adapter composes the two providers. Only one provider's utterances are
// ever returned for a given call; outcomes are never merged.
type Adapter struct {
	downloader Downloader
	speech     SpeechProvider
	captions   CaptionProvider
	opts       Options

	sleep func(time.Duration)
}

// NewAdapter builds the transcript source over the given providers.
func NewAdapter(downloader Downloader, speech SpeechProvider, captions CaptionProvider, opts Options) *Adapter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.PhaseTimeout <= 0 {
		opts.PhaseTimeout = 5 * time.Minute
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}
	return &Adapter{
		downloader: downloader,
		speech:     speech,
		captions:   captions,
		opts:       opts,
		sleep:      time.Sleep,
	}
}

// Fetch tries the speech provider and then the caption provider. Zero
// utterances from either side is never a success; the caller receives
// types.ErrNoTranscript when nothing usable exists.
func (a *Adapter) Fetch(ctx context.Context, mediaID, sourceURL string) ([]types.Utterance, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.PhaseTimeout)
	defer cancel()

	utterances, err := a.fromSpeech(ctx, sourceURL)
	if err == nil && len(utterances) > 0 {
		return utterances, nil
	}
	if err != nil {
		log.Printf("Speech provider failed for %s, falling back to captions: %v", mediaID, err)
	} else {
		log.Printf("Speech provider returned no utterances for %s, falling back to captions", mediaID)
	}

	utterances, err = a.captions.Fetch(ctx, mediaID, a.opts.Languages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNoTranscript, err)
	}
	if len(utterances) == 0 {
		return nil, types.ErrNoTranscript
	}

	return utterances, nil
}

// fromSpeech downloads the audio and submits it to the primary provider.
// Rate limits are retried with increasing delays up to MaxAttempts; any
// other error abandons the primary immediately. The temporary audio file
// is removed on every exit path.
func (a *Adapter) fromSpeech(ctx context.Context, sourceURL string) ([]types.Utterance, error) {
	audioPath, err := a.downloader.Download(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove temp audio %s: %v", audioPath, err)
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		utterances, err := a.speech.Transcribe(ctx, audioPath, a.opts.Language)
		if err == nil {
			return utterances, nil
		}
		if !errors.Is(err, types.ErrRateLimited) {
			return nil, err
		}

		lastErr = err
		if attempt < a.opts.MaxAttempts {
			delay := time.Duration(attempt*attempt) * a.opts.BackoffBase
			log.Printf("Speech provider rate limited (attempt %d/%d), waiting %s", attempt, a.opts.MaxAttempts, delay)
			a.sleep(delay)
		}
	}

	return nil, fmt.Errorf("rate limit retries exhausted: %w", lastErr)
}
