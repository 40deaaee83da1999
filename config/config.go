package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFormat is the format-selection expression used for the "best" preset
const DefaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best"

// DefaultAllowedDomains lists the source domains accepted out of the box
var DefaultAllowedDomains = []string{
	"youtube.com", "youtu.be", "www.youtube.com",
	"instagram.com", "www.instagram.com",
	"tiktok.com", "www.tiktok.com", "vm.tiktok.com",
}

// Config is the full service configuration
type Config struct {
	Server         ServerConfig   `mapstructure:"server" yaml:"server"`
	Download       DownloadConfig `mapstructure:"download" yaml:"download"`
	Engine         EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Log            LogConfig      `mapstructure:"log" yaml:"log"`
	AllowedDomains []string       `mapstructure:"allowed_domains" yaml:"allowed_domains"`
}

// ServerConfig controls the HTTP listener and gin mode
type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	Mode           string   `mapstructure:"mode" yaml:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// DownloadConfig controls the download directory, worker pool and retention
type DownloadConfig struct {
	Dir             string        `mapstructure:"dir" yaml:"dir"`
	MaxSizeMB       int           `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	Retention       time.Duration `mapstructure:"retention" yaml:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
	DefaultFormat   string        `mapstructure:"default_format" yaml:"default_format"`
	Workers         int           `mapstructure:"workers" yaml:"workers"`
	QueueSize       int           `mapstructure:"queue_size" yaml:"queue_size"`
	JobTimeout      time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// EngineConfig selects the yt-dlp binary and its audio extraction settings
type EngineConfig struct {
	Binary        string `mapstructure:"binary" yaml:"binary"`
	DefaultSearch string `mapstructure:"default_search" yaml:"default_search"`
	AudioCodec    string `mapstructure:"audio_codec" yaml:"audio_codec"`
	AudioQuality  string `mapstructure:"audio_quality" yaml:"audio_quality"`
}

// LogConfig sets the slog level and output format
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Address returns the host:port pair the HTTP server binds to
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads configuration from defaults, an optional YAML file and
// VIDGRAB_* environment variables, in increasing order of precedence.
// An empty path falls back to ./config.yaml when it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("VIDGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("download.dir", "./downloads")
	v.SetDefault("download.max_size_mb", 500)
	v.SetDefault("download.retention", "24h")
	v.SetDefault("download.cleanup_interval", "60s")
	v.SetDefault("download.default_format", DefaultFormat)
	v.SetDefault("download.workers", 4)
	v.SetDefault("download.queue_size", 100)
	v.SetDefault("download.job_timeout", "0s")

	v.SetDefault("engine.binary", "yt-dlp")
	v.SetDefault("engine.default_search", "ytsearch")
	v.SetDefault("engine.audio_codec", "mp3")
	v.SetDefault("engine.audio_quality", "192")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("allowed_domains", DefaultAllowedDomains)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	case "":
		c.Server.Mode = "release"
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	c.Download.Dir = strings.TrimSpace(c.Download.Dir)
	if c.Download.Dir == "" {
		return errors.New("download.dir is required")
	}

	if c.Download.Workers < 1 {
		return fmt.Errorf("download.workers must be at least 1, got %d", c.Download.Workers)
	}
	if c.Download.QueueSize < 0 {
		return fmt.Errorf("download.queue_size must not be negative, got %d", c.Download.QueueSize)
	}
	if c.Download.MaxSizeMB < 0 {
		return fmt.Errorf("download.max_size_mb must not be negative, got %d", c.Download.MaxSizeMB)
	}
	if c.Download.Retention <= 0 {
		return errors.New("download.retention must be positive")
	}
	if c.Download.CleanupInterval <= 0 {
		return errors.New("download.cleanup_interval must be positive")
	}
	if c.Download.JobTimeout < 0 {
		return errors.New("download.job_timeout must not be negative")
	}

	if strings.TrimSpace(c.Download.DefaultFormat) == "" {
		c.Download.DefaultFormat = DefaultFormat
	}

	domains := make([]string, 0, len(c.AllowedDomains))
	for _, d := range c.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		return errors.New("at least one allowed domain must be configured")
	}
	c.AllowedDomains = domains

	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Engine.Binary == "" {
		c.Engine.Binary = "yt-dlp"
	}

	return nil
}
