package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler removes stale temporary audio files left behind by crashed or
// interrupted downloads.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScheduler creates a cleanup scheduler over tempDir.
func NewScheduler(tempDir string, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start runs an initial sweep and then cleans on every tick.
func (s *Scheduler) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// sweep removes files older than maxAge from the temp directory.
func (s *Scheduler) sweep() {
	now := time.Now()
	var deleted int

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) > s.maxAge {
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete stale temp file %s: %v", path, err)
			} else {
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error during temp cleanup: %v", err)
	}

	if deleted > 0 {
		log.Printf("Cleanup removed %d stale temp files", deleted)
	}
}

// EnsureTempDirExists creates the temp directory if it doesn't exist.
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}
