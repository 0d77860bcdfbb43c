package domain

import (
	"path/filepath"
	"time"
)

// DefaultUserAgent is sent by both the embedded browser and the HTTP client.
// The platform serves different responses when the two disagree.
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 13; 22081212C Build/TKQ1.220829.002; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/116.0.0.0 Mobile Safari/537.36 XWEB/1160043 MMWEBSDK/20231105 MMWEBID/4478 MicroMessenger/8.0.44.2502(0x28002C51) WeChat/arm64 Weixin NetType/WIFI Language/zh_CN ABI/arm64"

// DefaultPlayEndpoint is the base of every direct link.
const DefaultPlayEndpoint = "https://www.douyin.com/aweme/v1/play/"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Browser      BrowserConfig      `mapstructure:"browser"`
	Resolver     ResolverConfig     `mapstructure:"resolver"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BrowserConfig configures the headless browser used for resolution
type BrowserConfig struct {
	ExecPath  string `mapstructure:"exec_path"` // empty: let chromedp find Chrome
	Headless  bool   `mapstructure:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
	UserAgent string `mapstructure:"user_agent"`
}

// ResolverConfig contains resolution and retry settings
type ResolverConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	PlayEndpoint string        `mapstructure:"play_endpoint"`
	MaxRetries   int           `mapstructure:"max_retries"` // 0 means retry until success or a terminal failure
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	Dir              string        `mapstructure:"dir"`
	SubDir           string        `mapstructure:"sub_dir"`
	Extension        string        `mapstructure:"extension"`
	DefaultName      string        `mapstructure:"default_name"`
	Timeout          time.Duration `mapstructure:"timeout"`
	VerifyTimeout    time.Duration `mapstructure:"verify_timeout"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// TargetDir returns the directory downloads are written to
func (c DownloadConfig) TargetDir() string {
	if c.SubDir == "" {
		return c.Dir
	}
	return filepath.Join(c.Dir, c.SubDir)
}

// HistoryConfig controls the SQLite record of past fetches
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // log, osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized event logs
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Browser: BrowserConfig{
			Headless:  true,
			NoSandbox: false,
			UserAgent: DefaultUserAgent,
		},
		Resolver: ResolverConfig{
			Timeout:      10 * time.Second,
			PlayEndpoint: DefaultPlayEndpoint,
			MaxRetries:   0,
			RetryDelay:   time.Second,
		},
		Download: DownloadConfig{
			Dir:              "$HOME/Downloads",
			SubDir:           "tikdown",
			Extension:        ".mp4",
			DefaultName:      "抖音下载",
			Timeout:          time.Hour,
			VerifyTimeout:    30 * time.Second,
			ProgressInterval: 200 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.tikdown/history.db",
		},
		Notification: NotificationConfig{
			Enabled: true,
			Method:  "log",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
			LogsDir:    "$HOME/.tikdown/logs",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
