package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/types"
)

// LocalExport writes completed chapter lists to the local filesystem.
type LocalExport struct {
	outputDir string
}

// NewLocalExport creates a local export handler.
func NewLocalExport(outputDir string) *LocalExport {
	return &LocalExport{
		outputDir: outputDir,
	}
}

// SaveResult writes the chapter list as markdown under a dated directory
// and returns the file path.
func (le *LocalExport) SaveResult(taskID string, result *types.AnalysisResult) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(le.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	timestamp := now.Format("20060102_150405")
	path := filepath.Join(dateDir, fmt.Sprintf("%s_%s.md", timestamp, sanitizeFilename(taskID)))

	if err := os.WriteFile(path, []byte(RenderMarkdown(result)), 0644); err != nil {
		return "", fmt.Errorf("failed to save chapters: %v", err)
	}

	return path, nil
}

// RenderMarkdown formats a result as a chapter listing.
func RenderMarkdown(result *types.AnalysisResult) string {
	var b strings.Builder

	title := result.Title
	if title == "" {
		title = "Untitled media"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if result.ThumbnailURL != "" {
		fmt.Fprintf(&b, "![thumbnail](%s)\n\n", result.ThumbnailURL)
	}

	for _, ch := range result.Chapters {
		fmt.Fprintf(&b, "- %s %s\n", ch.StartTime, ch.Title)
	}

	return b.String()
}

// sanitizeFilename removes invalid characters from a filename component.
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, ch := range invalid {
		result = strings.ReplaceAll(result, ch, "_")
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
