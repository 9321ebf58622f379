package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.tubetrove")
		v.AddConfigPath("/etc/tubetrove")
	}

	// Every key gets a default so TUBETROVE_* variables override keys that the
	// config file does not mention.
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("TUBETROVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// configValues flattens config into dotted viper keys
func configValues(c *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": c.Server.Host,
		"server.port": c.Server.Port,

		"library.root_dir":      c.Library.RootDir,
		"library.video_dir":     c.Library.VideoDir,
		"library.music_dir":     c.Library.MusicDir,
		"library.thumbnail_dir": c.Library.ThumbnailDir,
		"library.cover_dir":     c.Library.CoverDir,
		"library.ffmpeg_dir":    c.Library.FFmpegDir,
		"library.logs_dir":      c.Library.LogsDir,
		"library.settings_file": c.Library.SettingsFile,

		"download.ytdlp_binary":      c.Download.YTDLPBinary,
		"download.ffmpeg_binary":     c.Download.FFmpegBinary,
		"download.concurrent_limit":  c.Download.ConcurrentLimit,
		"download.embed_audio_cover": c.Download.EmbedAudioCover,
		"download.cover_max_size":    c.Download.CoverMaxSize,
		"download.title_cache_size":  c.Download.TitleCacheSize,
		"download.title_cache_ttl":   c.Download.TitleCacheTTL.String(),
		"download.progress_interval": c.Download.ProgressInterval.String(),

		"queue.database_path": c.Queue.DatabasePath,
		"queue.size":          c.Queue.Size,

		"gallery.columns": c.Gallery.Columns,

		"notification.enabled": c.Notification.Enabled,
		"notification.method":  c.Notification.Method,

		"logging.level":       c.Logging.Level,
		"logging.format":      c.Logging.Format,
		"logging.output_path": c.Logging.OutputPath,
	}
}

// expandPaths expands ~ and environment variables, then anchors the data
// files that live inside the library at the library root.
func expandPaths(config *domain.Config) *domain.Config {
	config.Library.RootDir = expandPath(config.Library.RootDir)
	config.Library.VideoDir = expandPath(config.Library.VideoDir)
	config.Library.MusicDir = expandPath(config.Library.MusicDir)
	config.Library.ThumbnailDir = expandPath(config.Library.ThumbnailDir)
	config.Library.CoverDir = expandPath(config.Library.CoverDir)
	config.Library.FFmpegDir = expandPath(config.Library.FFmpegDir)

	config.Library.LogsDir = config.Library.Resolve(expandPath(config.Library.LogsDir))
	config.Library.SettingsFile = config.Library.Resolve(expandPath(config.Library.SettingsFile))
	config.Queue.DatabasePath = config.Library.Resolve(expandPath(config.Queue.DatabasePath))
	config.Download.FFmpegBinary = config.Library.Resolve(expandPath(config.Download.FFmpegBinary))

	// a bare command name is looked up in PATH
	if strings.ContainsAny(config.Download.YTDLPBinary, `/\`) {
		config.Download.YTDLPBinary = expandPath(config.Download.YTDLPBinary)
	}

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Library.RootDir == "" {
		return fmt.Errorf("library root directory not configured")
	}

	for name, dir := range map[string]string{
		"video_dir":     config.Library.VideoDir,
		"music_dir":     config.Library.MusicDir,
		"thumbnail_dir": config.Library.ThumbnailDir,
		"cover_dir":     config.Library.CoverDir,
	} {
		if dir == "" {
			return fmt.Errorf("library %s not configured", name)
		}
	}

	if filepath.Ext(config.Library.SettingsFile) != ".json" {
		return fmt.Errorf("settings file must have a .json extension: %s", config.Library.SettingsFile)
	}

	if config.Download.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Download.FFmpegBinary == "" {
		return fmt.Errorf("ffmpeg binary not configured")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Download.TitleCacheSize < 1 {
		return fmt.Errorf("title cache size must be at least 1")
	}

	if config.Queue.Size < 1 {
		return fmt.Errorf("queue size must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.Gallery.Columns < 1 {
		return fmt.Errorf("gallery columns must be at least 1")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig writes configuration to a YAML file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
