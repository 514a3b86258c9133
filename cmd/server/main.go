package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/media-chapters/internal/cleanup"
	"github.com/codebuildervaibhav/media-chapters/internal/config"
	"github.com/codebuildervaibhav/media-chapters/internal/handlers"
	"github.com/codebuildervaibhav/media-chapters/internal/media"
	"github.com/codebuildervaibhav/media-chapters/internal/orchestrator"
	"github.com/codebuildervaibhav/media-chapters/internal/storage"
	"github.com/codebuildervaibhav/media-chapters/internal/summarize"
	"github.com/codebuildervaibhav/media-chapters/internal/transcript"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if dir := filepath.Dir(cfg.Storage.Database); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}

	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Println("Initializing components...")

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
		titler, err = summarize.NewGeminiTitler(cfg.Gemini.APIKeys, cfg.Gemini.Model)
		if err != nil {
			log.Fatalf("Failed to initialize titler: %v", err)
		}
	} else {
		log.Println("No Gemini API keys configured - chapter titles will use the local fallback")
		titler = summarize.FallbackTitler{Words: cfg.Chapters.TitleWords}
	}

	// Google Drive export is optional: missing credentials disable it.
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			driveClient = nil
		} else {
			log.Println("Google Drive export enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - exporting locally only")
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

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	analyzeHandler := handlers.NewAnalyzeHandler(orc)
	tasksHandler := handlers.NewTasksHandler(store)
	streamHandler := handlers.NewStreamHandler(store)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/analyze", analyzeHandler.Handle)
	app.Get("/tasks", tasksHandler.List)
	app.Get("/tasks/:id", tasksHandler.Get)
	app.Get("/ws/tasks/:id", websocket.New(streamHandler.Handle))

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /analyze       - Start media analysis")
	log.Println("   GET  /tasks         - List recent tasks")
	log.Println("   GET  /tasks/:id     - Poll task status")
	log.Println("   GET  /ws/tasks/:id  - Stream task status")
	log.Println("   GET  /logs          - View server logs")
	log.Println("   GET  /health        - Health check")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	orc.Wait()
}

// LogBuffer captures logs in memory for the /logs endpoint
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
