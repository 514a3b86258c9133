// The batch driver analyzes a list of media URLs offline through the same
// orchestrator the server uses, differing only in its concurrency limit.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-chapters/internal/cleanup"
	"github.com/codebuildervaibhav/media-chapters/internal/config"
	"github.com/codebuildervaibhav/media-chapters/internal/media"
	"github.com/codebuildervaibhav/media-chapters/internal/orchestrator"
	"github.com/codebuildervaibhav/media-chapters/internal/storage"
	"github.com/codebuildervaibhav/media-chapters/internal/summarize"
	"github.com/codebuildervaibhav/media-chapters/internal/transcript"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	inputPath := flag.String("input", "", "file with one media URL per line")
	concurrency := flag.Int("concurrency", 0, "override workers.max_concurrent")
	authorize := flag.Bool("authorize-drive", false, "run the Google Drive OAuth flow and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *authorize {
		if err := storage.Authorize(cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile); err != nil {
			log.Fatalf("Drive authorization failed: %v", err)
		}
		log.Println("Drive token cached")
		return
	}

	if *inputPath == "" {
		log.Fatal("-input is required")
	}
	if *concurrency > 0 {
		cfg.Workers.MaxConcurrent = *concurrency
	}

	urls, err := readURLs(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	if len(urls) == 0 {
		log.Fatal("No URLs in input file")
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if dir := filepath.Dir(cfg.Storage.Database); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}

	store, err := storage.NewTaskStore(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize task store: %v", err)
	}
	defer store.Close()

	requestTimeout := time.Duration(cfg.Providers.RequestTimeoutSeconds) * time.Second

	source := transcript.NewAdapter(
		transcript.NewAudioDownloader(cfg.Storage.TempDir),
		transcript.NewSpeechClient(cfg.Providers.Speech.Endpoint, cfg.Providers.Speech.APIKey, requestTimeout),
		transcript.NewCaptionClient(cfg.Providers.Captions.Endpoint, requestTimeout),
		transcript.Options{
			Language:     cfg.Providers.Speech.Language,
			Languages:    cfg.Providers.Captions.Languages,
			MaxAttempts:  cfg.Providers.Speech.MaxAttempts,
			BackoffBase:  time.Duration(cfg.Providers.Speech.BackoffBaseSeconds) * time.Second,
			PhaseTimeout: time.Duration(cfg.Providers.TranscriptTimeoutSeconds) * time.Second,
		},
	)

	var titler summarize.Titler
	if len(cfg.Gemini.APIKeys) > 0 {
		if titler, err = summarize.NewGeminiTitler(cfg.Gemini.APIKeys, cfg.Gemini.Model); err != nil {
			log.Fatalf("Failed to initialize titler: %v", err)
		}
	} else {
		titler = summarize.FallbackTitler{Words: cfg.Chapters.TitleWords}
	}

	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		if driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		); err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			driveClient = nil
		}
	}

	orc := orchestrator.New(
		store,
		source,
		titler,
		media.NewMetadataClient("", requestTimeout),
		storage.NewLocalExport(cfg.Storage.OutputDir),
		driveClient,
		orchestrator.Options{
			ChapterSeconds: cfg.Chapters.DurationSeconds,
			TitleWords:     cfg.Chapters.TitleWords,
			MaxConcurrent:  cfg.Workers.MaxConcurrent,
		},
	)

	ctx := context.Background()
	ids := make([]string, 0, len(urls))
	for _, url := range urls {
		task, cached, err := orc.Start(ctx, url)
		if err != nil {
			log.Printf("Failed to start %s: %v", url, err)
			continue
		}
		if cached {
			log.Printf("%s already analyzed (%d chapters)", task.ID, len(task.Result.Chapters))
			continue
		}
		ids = append(ids, task.ID)
	}

	log.Printf("Waiting for %d analyses...", len(ids))
	orc.Wait()

	var completed, failed int
	for _, id := range ids {
		task, err := store.Get(ctx, id)
		if err != nil {
			log.Printf("%s: lookup failed: %v", id, err)
			failed++
			continue
		}
		switch {
		case task.Result != nil:
			log.Printf("%s: %s (%d chapters)", id, task.Status, len(task.Result.Chapters))
			completed++
		default:
			log.Printf("%s: %s (%s)", id, task.Status, task.Message)
			failed++
		}
	}

	log.Printf("Batch complete: %d succeeded, %d failed", completed, failed)
}

// readURLs loads one URL per line, skipping blanks and # comments.
func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	return urls, scanner.Err()
}
