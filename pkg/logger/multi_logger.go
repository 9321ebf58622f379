package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryDownload LogCategory = "downloads" // request lifecycle events (JSON)
	CategoryError    LogCategory = "error"     // application errors (JSON)
)

const dateLayout = "20060102"

// MultiLogger writes categorized JSON logs into one file per category and day.
// Raw yt-dlp output does not go through here; the downloader appends it to
// DownloadLogPath directly.
type MultiLogger struct {
	mu          sync.Mutex
	loggers     map[LogCategory]*zap.Logger
	files       []*os.File
	level       zapcore.Level
	logsDir     string
	currentDate string
	now         func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string
	LogsDir string
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		level:   level,
		logsDir: config.LogsDir,
		now:     time.Now,
	}
	if err := ml.open(ml.now().Format(dateLayout)); err != nil {
		return nil, err
	}
	return ml, nil
}

// NewNopMultiLogger returns a MultiLogger that discards everything
func NewNopMultiLogger() *MultiLogger {
	nop := zap.NewNop()
	return &MultiLogger{
		loggers: map[LogCategory]*zap.Logger{CategoryDownload: nop, CategoryError: nop},
		now:     time.Now,
	}
}

func (ml *MultiLogger) open(date string) error {
	loggers := make(map[LogCategory]*zap.Logger, 2)
	var files []*os.File
	for category, level := range map[LogCategory]zapcore.Level{
		CategoryDownload: ml.level,
		CategoryError:    zapcore.ErrorLevel,
	} {
		path := filepath.Join(ml.logsDir, fmt.Sprintf("%s-%s.log", category, date))
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to open %s log: %w", category, err)
		}
		files = append(files, file)

		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.CallerKey = ""
		loggers[category] = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(file), level))
	}

	ml.closeFiles()
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date
	return nil
}

// rotate reopens the category files when the day has changed
func (ml *MultiLogger) rotate() {
	if ml.logsDir == "" {
		return
	}
	date := ml.now().Format(dateLayout)
	if date == ml.currentDate {
		return
	}
	for _, l := range ml.loggers {
		_ = l.Sync()
	}
	if err := ml.open(date); err != nil {
		// keep writing to yesterday's files rather than losing events
		ml.loggers[CategoryError].Error("log rotation failed", zap.Error(err))
	}
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.rotate()
	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// LogDownloadEvent records a download lifecycle event
func (ml *MultiLogger) LogDownloadEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryDownload).Info(event, fields...)
}

// LogAppError records an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.GetLogger(CategoryError).Error(msg, fields...)
}

// Close flushes the loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	ml.closeFiles()
	return lastErr
}

func (ml *MultiLogger) closeFiles() {
	for _, f := range ml.files {
		f.Close()
	}
	ml.files = nil
}

// DownloadLogPath is the daily file that receives raw downloader output
func DownloadLogPath(logsDir string, t time.Time) string {
	return filepath.Join(logsDir, "download-"+t.Format(dateLayout)+".log")
}
