package transcript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

type fakeDownloader struct {
	calls int
	dir   string
	fail  bool
}

func (f *fakeDownloader) Download(ctx context.Context, sourceURL string) (string, error) {
	f.calls++
	if f.fail {
		return "", fmt.Errorf("download blew up")
	}
	tmp, err := os.CreateTemp(f.dir, "audio-*.m4a")
	if err != nil {
		return "", err
	}
	tmp.Close()
	return tmp.Name(), nil
}

type fakeSpeech struct {
	calls      int
	err        error
	utterances []types.Utterance
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audioPath, language string) ([]types.Utterance, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.utterances, nil
}

type fakeCaptions struct {
	calls      int
	err        error
	utterances []types.Utterance
}

func (f *fakeCaptions) Fetch(ctx context.Context, mediaID string, languages []string) ([]types.Utterance, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.utterances, nil
}

func newTestAdapter(d Downloader, s SpeechProvider, c CaptionProvider) (*Adapter, *[]time.Duration) {
	a := NewAdapter(d, s, c, Options{
		Language:    "en",
		Languages:   []string{"en"},
		MaxAttempts: 3,
		BackoffBase: time.Second,
	})
	var delays []time.Duration
	a.sleep = func(d time.Duration) { delays = append(delays, d) }
	return a, &delays
}

func TestFetchPrimarySuccess(t *testing.T) {
	speech := &fakeSpeech{utterances: []types.Utterance{{Text: "Selam", Start: 0, End: 5}}}
	captions := &fakeCaptions{}
	a, _ := newTestAdapter(&fakeDownloader{dir: t.TempDir()}, speech, captions)

	utterances, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(utterances) != 1 || utterances[0].Text != "Selam" {
		t.Fatalf("utterances = %v", utterances)
	}
	if captions.calls != 0 {
		t.Errorf("captions called %d times on primary success, want 0", captions.calls)
	}
}

func TestFetchRetryBound(t *testing.T) {
	speech := &fakeSpeech{err: fmt.Errorf("%w: status 429", types.ErrRateLimited)}
	captions := &fakeCaptions{utterances: []types.Utterance{{Text: "caption", Start: 0, End: 3}}}
	a, delays := newTestAdapter(&fakeDownloader{dir: t.TempDir()}, speech, captions)

	utterances, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if speech.calls != 3 {
		t.Errorf("speech attempts = %d, want exactly 3", speech.calls)
	}
	if len(*delays) != 2 {
		t.Fatalf("got %d backoff delays, want 2", len(*delays))
	}
	if !((*delays)[0] < (*delays)[1]) {
		t.Errorf("backoff delays not strictly increasing: %v", *delays)
	}
	if captions.calls != 1 {
		t.Errorf("captions called %d times, want 1", captions.calls)
	}
	if utterances[0].Text != "caption" {
		t.Errorf("expected fallback utterances, got %v", utterances)
	}
}

func TestFetchTerminalErrorSkipsRetries(t *testing.T) {
	speech := &fakeSpeech{err: errors.New("unsupported codec")}
	captions := &fakeCaptions{utterances: []types.Utterance{{Text: "caption", Start: 0, End: 3}}}
	a, delays := newTestAdapter(&fakeDownloader{dir: t.TempDir()}, speech, captions)

	if _, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if speech.calls != 1 {
		t.Errorf("speech attempts = %d, want 1 (no retry on terminal error)", speech.calls)
	}
	if len(*delays) != 0 {
		t.Errorf("unexpected backoff on terminal error: %v", *delays)
	}
	if captions.calls != 1 {
		t.Errorf("captions called %d times, want exactly 1", captions.calls)
	}
}

func TestFetchBothProvidersEmpty(t *testing.T) {
	speech := &fakeSpeech{}     // success with zero utterances
	captions := &fakeCaptions{} // success with zero utterances
	a, _ := newTestAdapter(&fakeDownloader{dir: t.TempDir()}, speech, captions)

	_, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123")
	if !errors.Is(err, types.ErrNoTranscript) {
		t.Fatalf("error = %v, want ErrNoTranscript", err)
	}
}

func TestFetchCaptionsUnavailable(t *testing.T) {
	speech := &fakeSpeech{err: errors.New("boom")}
	captions := &fakeCaptions{err: types.ErrCaptionsUnavailable}
	a, _ := newTestAdapter(&fakeDownloader{dir: t.TempDir()}, speech, captions)

	_, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123")
	if !errors.Is(err, types.ErrNoTranscript) {
		t.Fatalf("error = %v, want ErrNoTranscript", err)
	}
}

func TestFetchReleasesAudioOnFailure(t *testing.T) {
	downloader := &fakeDownloader{dir: t.TempDir()}
	speech := &fakeSpeech{err: errors.New("boom")}
	captions := &fakeCaptions{err: types.ErrCaptionsUnavailable}
	a, _ := newTestAdapter(downloader, speech, captions)

	a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123")

	entries, err := os.ReadDir(downloader.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp audio not released: %d files remain", len(entries))
	}
	if downloader.calls != 1 {
		t.Errorf("downloader called %d times, want 1", downloader.calls)
	}
}

func TestFetchReleasesAudioOnSuccess(t *testing.T) {
	downloader := &fakeDownloader{dir: t.TempDir()}
	speech := &fakeSpeech{utterances: []types.Utterance{{Text: "ok", Start: 0, End: 1}}}
	a, _ := newTestAdapter(downloader, speech, &fakeCaptions{})

	if _, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	entries, err := os.ReadDir(downloader.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp audio not released after success: %d files remain", len(entries))
	}
}

func TestFetchDownloadFailureFallsBack(t *testing.T) {
	downloader := &fakeDownloader{dir: t.TempDir(), fail: true}
	speech := &fakeSpeech{}
	captions := &fakeCaptions{utterances: []types.Utterance{{Text: "caption", Start: 0, End: 3}}}
	a, _ := newTestAdapter(downloader, speech, captions)

	utterances, err := a.Fetch(context.Background(), "abc123", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if speech.calls != 0 {
		t.Errorf("speech called %d times without audio, want 0", speech.calls)
	}
	if utterances[0].Text != "caption" {
		t.Errorf("expected caption fallback, got %v", utterances)
	}
}
