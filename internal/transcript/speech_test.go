package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.m4a")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSpeechClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Query().Get("language") != "en" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"utterances":[{"text":"Selam","start":0,"end":5},{"text":"devam","start":5,"end":125}]}`))
	}))
	defer srv.Close()

	sc := NewSpeechClient(srv.URL, "key", 5*time.Second)

	utterances, err := sc.Transcribe(context.Background(), writeTestAudio(t), "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if len(utterances) != 2 {
		t.Fatalf("got %d utterances, want 2", len(utterances))
	}
	if utterances[1].Text != "devam" || utterances[1].End != 125 {
		t.Errorf("utterances[1] = %+v", utterances[1])
	}
}

func TestSpeechClientRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sc := NewSpeechClient(srv.URL, "key", 5*time.Second)

	_, err := sc.Transcribe(context.Background(), writeTestAudio(t), "en")
	if !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestSpeechClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sc := NewSpeechClient(srv.URL, "key", 5*time.Second)

	_, err := sc.Transcribe(context.Background(), writeTestAudio(t), "en")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, types.ErrRateLimited) {
		t.Fatal("500 must not be classified as rate limited")
	}
}
