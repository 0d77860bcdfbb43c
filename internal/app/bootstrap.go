package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yourusername/tikdown-go/internal/domain"
	"github.com/yourusername/tikdown-go/internal/infrastructure"
	"github.com/yourusername/tikdown-go/pkg/logger"
	"go.uber.org/zap"
)

// Components is the wired application shared by the CLI and the server
type Components struct {
	Config      *domain.Config
	Logger      *zap.Logger
	Events      *logger.MultiLogger
	Repo        *infrastructure.SQLiteRecordRepository
	Registry    *prometheus.Registry
	Pipeline    *Pipeline
	DownloadMgr *DownloadManager
}

// NewLogger builds the application logger from config
func NewLogger(config *domain.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})
}

// Bootstrap wires the browser, HTTP client, storage, history and metrics
// into a pipeline. Close releases what it opened.
func Bootstrap(config *domain.Config, log *zap.Logger) (*Components, error) {
	c := &Components{
		Config: config,
		Logger: log,
	}

	if config.Logging.LogsDir != "" {
		events, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:      config.Logging.Level,
			LogsDir:    config.Logging.LogsDir,
			MaxSizeMB:  config.Logging.MaxSizeMB,
			MaxBackups: config.Logging.MaxBackups,
			MaxAgeDays: config.Logging.MaxAgeDays,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event logs: %w", err)
		}
		c.Events = events
	}

	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteRecordRepository(config.History.DatabasePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize history: %w", err)
		}
		c.Repo = repo
	}

	// The client timeout stays zero; verifier and downloader bound their
	// own requests.
	session, err := infrastructure.NewSessionClient(config.Browser.UserAgent, 0)
	if err != nil {
		c.Close()
		return nil, err
	}

	browser := infrastructure.NewChromeBrowser(&config.Browser, log)
	resolver := NewBrowserResolver(browser, session, log)
	verifier := infrastructure.NewHTTPVerifier(session.HTTPClient(), config.Resolver.PlayEndpoint, config.Download.VerifyTimeout, log)
	storage := infrastructure.NewFileStorage(config.Download.TargetDir())
	downloader := infrastructure.NewHTTPDownloader(session.HTTPClient(), storage, config.Download.Extension, config.Download.Timeout, log)

	var notifier domain.Notifier
	if config.Notification.Enabled {
		notifier = infrastructure.NewNotificationService(&config.Notification, log)
	}

	c.Pipeline = NewPipeline(resolver, verifier, downloader, notifier, config, log)
	if c.Repo != nil {
		c.Pipeline.WithRepository(c.Repo)
	}
	if c.Events != nil {
		c.Pipeline.WithEventLogger(c.Events)
	}

	if config.Metrics.Enabled {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		c.Pipeline.WithMetrics(infrastructure.NewMetrics(c.Registry))
	}

	c.DownloadMgr = NewDownloadManager(c.Pipeline, log)

	return c, nil
}

// History returns the record repository, or nil when history is disabled
func (c *Components) History() domain.RecordRepository {
	if c.Repo == nil {
		return nil
	}
	return c.Repo
}

// Close releases the history database and event log files
func (c *Components) Close() {
	if c.Repo != nil {
		if err := c.Repo.Close(); err != nil {
			c.Logger.Warn("Failed to close history database", zap.Error(err))
		}
	}
	if c.Events != nil {
		_ = c.Events.Sync()
		_ = c.Events.Close()
	}
}
