package transcript

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// AudioDownloader shells out to yt-dlp to extract the audio track of a
// media URL into the temp directory.
type AudioDownloader struct {
	tempDir string
}

// NewAudioDownloader creates a downloader writing into tempDir.
func NewAudioDownloader(tempDir string) *AudioDownloader {
	return &AudioDownloader{tempDir: tempDir}
}

// Download fetches the audio and returns the path of the temporary file.
// The caller owns the file and removes it when done.
func (d *AudioDownloader) Download(ctx context.Context, sourceURL string) (string, error) {
	outputPath := filepath.Join(d.tempDir, fmt.Sprintf("%s.m4a", uuid.New().String()))

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-x", // Extract audio
		"--audio-format", "m4a",
		"--no-playlist",
		"-o", outputPath,
		sourceURL,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %v\nOutput: %s", err, string(output))
	}

	return outputPath, nil
}
