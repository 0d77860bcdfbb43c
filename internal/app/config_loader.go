package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/tikdown-go/internal/domain"
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
		v.AddConfigPath("$HOME/.tikdown")
		v.AddConfigPath("/etc/tikdown")
	}

	// TIKDOWN_RESOLVER_TIMEOUT overrides resolver.timeout and so on
	v.SetEnvPrefix("TIKDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
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

// bindEnvKeys registers every known key so AutomaticEnv applies to keys
// that appear in no config file
func bindEnvKeys(v *viper.Viper) {
	for key := range configValues(domain.DefaultConfig()) {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.Dir = expandPath(config.Download.Dir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)
	config.Browser.ExecPath = expandPath(config.Browser.ExecPath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME first so it resolves even where the variable is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Resolver.Timeout <= 0 {
		return fmt.Errorf("resolver timeout must be positive")
	}

	if config.Resolver.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if config.Resolver.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	if !strings.HasPrefix(config.Resolver.PlayEndpoint, "http://") && !strings.HasPrefix(config.Resolver.PlayEndpoint, "https://") {
		return fmt.Errorf("invalid play endpoint: %q", config.Resolver.PlayEndpoint)
	}

	if config.Download.Dir == "" {
		return fmt.Errorf("download directory not configured")
	}

	if config.Download.Timeout <= 0 {
		return fmt.Errorf("download timeout must be positive")
	}

	if config.Download.Extension != "" && !strings.HasPrefix(config.Download.Extension, ".") {
		config.Download.Extension = "." + config.Download.Extension
	}

	if config.Download.DefaultName == "" {
		config.Download.DefaultName = domain.DefaultConfig().Download.DefaultName
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Browser.UserAgent == "" {
		config.Browser.UserAgent = domain.DefaultUserAgent
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Keys must match the mapstructure tags so the file loads back
	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func configValues(c *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host":                c.Server.Host,
		"server.port":                c.Server.Port,
		"browser.exec_path":          c.Browser.ExecPath,
		"browser.headless":           c.Browser.Headless,
		"browser.no_sandbox":         c.Browser.NoSandbox,
		"browser.user_agent":         c.Browser.UserAgent,
		"resolver.timeout":           c.Resolver.Timeout.String(),
		"resolver.play_endpoint":     c.Resolver.PlayEndpoint,
		"resolver.max_retries":       c.Resolver.MaxRetries,
		"resolver.retry_delay":       c.Resolver.RetryDelay.String(),
		"download.dir":               c.Download.Dir,
		"download.sub_dir":           c.Download.SubDir,
		"download.extension":         c.Download.Extension,
		"download.default_name":      c.Download.DefaultName,
		"download.timeout":           c.Download.Timeout.String(),
		"download.verify_timeout":    c.Download.VerifyTimeout.String(),
		"download.progress_interval": c.Download.ProgressInterval.String(),
		"history.enabled":            c.History.Enabled,
		"history.database_path":      c.History.DatabasePath,
		"notification.enabled":       c.Notification.Enabled,
		"notification.method":        c.Notification.Method,
		"logging.level":              c.Logging.Level,
		"logging.format":             c.Logging.Format,
		"logging.output_path":        c.Logging.OutputPath,
		"logging.logs_dir":           c.Logging.LogsDir,
		"logging.max_size_mb":        c.Logging.MaxSizeMB,
		"logging.max_backups":        c.Logging.MaxBackups,
		"logging.max_age_days":       c.Logging.MaxAgeDays,
		"metrics.enabled":            c.Metrics.Enabled,
		"metrics.path":               c.Metrics.Path,
	}
}
