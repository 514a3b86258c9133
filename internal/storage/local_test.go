package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

func TestSaveResult(t *testing.T) {
	export := NewLocalExport(t.TempDir())

	result := &types.AnalysisResult{
		Title:        "Talk about Go",
		ThumbnailURL: "https://img.example.com/1.jpg",
		Chapters: []types.Chapter{
			{StartTime: "00:00:00", Title: "Intro"},
			{StartTime: "00:02:05", Title: "Main part"},
		},
	}

	path, err := export.SaveResult("abc123", result)
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "# Talk about Go") {
		t.Errorf("missing title heading:\n%s", content)
	}
	if !strings.Contains(content, "- 00:02:05 Main part") {
		t.Errorf("missing chapter line:\n%s", content)
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := sanitizeFilename(`a/b\c:d*e`)
	if strings.ContainsAny(got, `/\:*`) {
		t.Errorf("sanitizeFilename left invalid characters: %q", got)
	}
}
