package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/api"
	"github.com/yourusername/tubetrove-go/internal/app"
	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/internal/infrastructure"
	"github.com/yourusername/tubetrove-go/internal/library"
	"github.com/yourusername/tubetrove-go/pkg/logger"
)

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	configPath = flag.String("config", "", "Path to the config file (default: ./configs, ~/.tubetrove, /etc/tubetrove)")
)

func main() {
	flag.Parse()

	// If not in server mode, run as daemon
	if !*serverMode {
		startAsDaemon()
		return
	}

	runServer()
}

// startAsDaemon re-executes the binary in server mode, detached from the terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}
	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runServer() {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(config.Library.LogsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
		os.Exit(1)
	}

	// Daily download and error logs
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Library.LogsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer multiLog.Close()

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting TubeTrove server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("root_dir", config.Library.RootDir),
		zap.Int("workers", config.Download.ConcurrentLimit))

	fs := afero.NewOsFs()
	layout := config.Library.Layout()

	if err := library.EnsureLayout(fs, layout); err != nil {
		log.Fatal("Failed to create library directories", zap.Error(err))
	}

	removed, err := library.CleanStrayImages(fs, layout)
	if err != nil {
		log.Warn("Failed to clean stray images", zap.Error(err))
	}
	for _, path := range removed {
		log.Info("Removed stray image", zap.String("path", path))
	}

	settingsStore := infrastructure.NewJSONSettingsStore(fs, config.Library.SettingsFile)
	settings, err := settingsStore.Load()
	if err != nil {
		log.Fatal("Failed to load settings", zap.String("path", settingsStore.Path()), zap.Error(err))
	}

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if n, err := repo.MarkInterrupted(); err != nil {
		log.Warn("Failed to mark interrupted downloads", zap.Error(err))
	} else if n > 0 {
		log.Info("Marked interrupted downloads as failed", zap.Int64("count", n))
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	fetcher, transcoder := newMediaTools(config, multiLog)
	if err := transcoder.Available(); err != nil {
		log.Warn("Downloads will fail until ffmpeg is installed", zap.Error(err))
	}

	downloadMgr := app.NewDownloadManager(
		repo,
		fetcher,
		transcoder,
		infrastructure.NewID3CoverTagger(),
		notifier,
		fs,
		layout,
		&config.Download,
		log,
		multiLog,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gallery := app.NewGallery(fs, layout, config.Gallery.Columns, infrastructure.NewSystemOpener(), log)
	go gallery.Run(ctx, settings.Theme)

	hub := app.NewEventHub()
	downloadMgr.AddObserver(hub)
	downloadMgr.AddObserver(gallery)

	snapshots, unsubscribe, err := gallery.Subscribe(ctx)
	if err != nil {
		log.Fatal("Failed to subscribe to gallery", zap.Error(err))
	}
	defer unsubscribe()
	go hub.ForwardGallery(ctx, snapshots)

	settingsSvc := app.NewSettingsService(settingsStore, settings, gallery, hub, log)

	queueMgr := app.NewQueueManager(repo, downloadMgr, &config.Queue, config.Download.ConcurrentLimit, multiLog)
	if err := queueMgr.Start(ctx); err != nil {
		log.Fatal("Failed to start queue manager", zap.Error(err))
	}

	router := api.SetupRouter(api.Dependencies{
		Downloads:   queueMgr,
		Queue:       queueMgr,
		Transcoder:  transcoder,
		Library:     gallery,
		Settings:    settingsSvc,
		Events:      hub,
		Logger:      log,
		MultiLogger: multiLog,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the workers first so running downloads are marked failed before the
	// repository closes.
	if err := queueMgr.Stop(); err != nil {
		log.Error("Error stopping queue manager", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newMediaTools builds the downloader and the transcoder around the same
// ffmpeg binary, so yt-dlp merges with the one the precondition checked.
func newMediaTools(config *domain.Config, multiLog *logger.MultiLogger) (*infrastructure.YTDLPDownloader, *infrastructure.FFmpegTranscoder) {
	ffmpeg := config.Download.FFmpegBinary
	fetcher := infrastructure.NewYTDLPDownloader(config.Download.YTDLPBinary, ffmpeg, config.Library.LogsDir, multiLog)
	return fetcher, infrastructure.NewFFmpegTranscoder(ffmpeg)
}
