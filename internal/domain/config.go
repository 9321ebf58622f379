package domain

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Library      LibraryConfig      `mapstructure:"library"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Gallery      GalleryConfig      `mapstructure:"gallery"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LibraryConfig describes the on-disk layout. Every directory is relative to
// RootDir unless configured as an absolute path.
type LibraryConfig struct {
	RootDir      string `mapstructure:"root_dir"`
	VideoDir     string `mapstructure:"video_dir"`
	MusicDir     string `mapstructure:"music_dir"`
	ThumbnailDir string `mapstructure:"thumbnail_dir"`
	CoverDir     string `mapstructure:"cover_dir"`
	FFmpegDir    string `mapstructure:"ffmpeg_dir"`
	LogsDir      string `mapstructure:"logs_dir"`
	SettingsFile string `mapstructure:"settings_file"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	YTDLPBinary      string        `mapstructure:"ytdlp_binary"`
	FFmpegBinary     string        `mapstructure:"ffmpeg_binary"`
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	EmbedAudioCover  bool          `mapstructure:"embed_audio_cover"`
	CoverMaxSize     int           `mapstructure:"cover_max_size"`
	TitleCacheSize   int           `mapstructure:"title_cache_size"`
	TitleCacheTTL    time.Duration `mapstructure:"title_cache_ttl"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	Size         int    `mapstructure:"size"`
}

// GalleryConfig controls the tile grid
type GalleryConfig struct {
	Columns int `mapstructure:"columns"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultFFmpegBinary is the transcoder location inside the ffmpeg directory.
func DefaultFFmpegBinary() string {
	if runtime.GOOS == "windows" {
		return filepath.Join("ffmpeg", "ffmpeg.exe")
	}
	return filepath.Join("ffmpeg", "ffmpeg")
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Library: LibraryConfig{
			RootDir:      ".",
			VideoDir:     "videos",
			MusicDir:     "music",
			ThumbnailDir: "thumbnails",
			CoverDir:     "covers",
			FFmpegDir:    "ffmpeg",
			LogsDir:      "logs",
			SettingsFile: "config.json",
		},
		Download: DownloadConfig{
			YTDLPBinary:      "yt-dlp",
			FFmpegBinary:     DefaultFFmpegBinary(),
			ConcurrentLimit:  2,
			EmbedAudioCover:  true,
			CoverMaxSize:     1000,
			TitleCacheSize:   256,
			TitleCacheTTL:    30 * time.Minute,
			ProgressInterval: 500 * time.Millisecond,
		},
		Queue: QueueConfig{
			DatabasePath: "history.db",
			Size:         64,
		},
		Gallery: GalleryConfig{
			Columns: 5,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

// Resolve joins a configured directory with the library root.
func (c LibraryConfig) Resolve(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.RootDir, dir)
}

// Layout returns the resolved directory layout.
func (c LibraryConfig) Layout() Layout {
	return Layout{
		VideoDir:     c.Resolve(c.VideoDir),
		MusicDir:     c.Resolve(c.MusicDir),
		ThumbnailDir: c.Resolve(c.ThumbnailDir),
		CoverDir:     c.Resolve(c.CoverDir),
		FFmpegDir:    c.Resolve(c.FFmpegDir),
	}
}
