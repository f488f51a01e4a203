package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
)

// LoadConfig reads .env (when present) and then the YAML file at CONFIG_PATH.
func LoadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	return config.NewViper(path)
}

// InstrumentConfig maps the instrument.* keys.
func InstrumentConfig(cfg config.Config) *instrument.Config {
	return &instrument.Config{
		Enabled:          cfg.GetBool("instrument.enabled"),
		ServiceName:      cfg.GetString("instrument.service_name"),
		ServiceVersion:   cfg.GetString("instrument.service_version"),
		Environment:      cfg.GetString("instrument.env"),
		OTLPEndpoint:     cfg.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       cfg.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: cfg.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  cfg.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         cfg.GetString("instrument.log_level"),
		MaskFields:       cfg.GetArray("instrument.log_mask_fields"),
	}
}

// NewDispatcher builds the mail dispatcher from the mail.* keys:
//
//	mail.default_channel   name used when a request names none
//	mail.debug             log every request and result
//	mail.settings          default_from, default_reply_to, default_from_name
//	mail.channels.<name>   type (brevo|smtp) plus its credentials
func NewDispatcher(cfg config.Config, logger *slog.Logger) (*mail.Dispatcher, error) {
	var settings mail.Settings
	if err := cfg.UnmarshalKey("mail.settings", &settings); err != nil {
		return nil, fmt.Errorf("decode mail.settings: %w", err)
	}

	var table map[string]mail.ChannelConfig
	if err := cfg.UnmarshalKey("mail.channels", &table); err != nil {
		return nil, fmt.Errorf("decode mail.channels: %w", err)
	}

	for name, ch := range table {
		if ch.Channel() == nil {
			slog.Warn("mail channel has an unknown type and will be rejected on use", "channel", name, "type", ch.Type)
		}
	}

	pc := mail.NewProviderConfig(cfg.GetString("mail.default_channel"), cfg.GetBool("mail.debug"), table)
	if _, _, ok := pc.Lookup(pc.DefaultChannel); !ok {
		slog.Warn("mail default channel is not configured", "default_channel", pc.DefaultChannel, "channels", pc.Names())
	}

	timeout := cfg.GetSecond("mail.http_timeout_seconds")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return mail.Init(pc, settings,
		mail.WithLogger(logger),
		mail.WithHTTPClient(&http.Client{Timeout: timeout}),
	), nil
}

// shutdownTimeout bounds Stop when called from the CLI.
func shutdownTimeout(cfg config.Config) time.Duration {
	if d := cfg.GetSecond("app.server.shutdown_timeout_seconds"); d > 0 {
		return d
	}
	return 10 * time.Second
}

// ShutdownContext returns the context Stop should run with.
func (a *App) ShutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout(a.config))
}
