package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

var (
	// ErrChannelNotFound is returned when the channel name resolves to nothing.
	ErrChannelNotFound = errors.New("mail: channel not found")
	// ErrUnsupportedChannel is returned for a channel with no known transport.
	ErrUnsupportedChannel = errors.New("mail: unsupported channel type")
)

const defaultHTTPTimeout = 30 * time.Second

// Dispatcher sends Requests through the configured channels.
//
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	cfg      ProviderConfig
	settings Settings
	logger   *slog.Logger
	client   HTTPDoer
	newRelay RelayFactory
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for failures and, with ProviderConfig.Debug, debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client used by HTTP API channels.
func WithHTTPClient(c HTTPDoer) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithRelayFactory replaces how SMTP relay channels are dialed.
func WithRelayFactory(f RelayFactory) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.newRelay = f
		}
	}
}

// Init binds cfg and settings into a Dispatcher. Nothing is validated here;
// a bad channel table surfaces on the first Send through it.
func Init(cfg ProviderConfig, settings Settings, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		settings: settings,
		logger:   slog.Default(),
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		newRelay: func(o SMTPOptions) Relay {
			return NewSMTPRelay(o, clock.New(), uid.NewUUID())
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the provider configuration the Dispatcher was built with.
func (d *Dispatcher) Config() ProviderConfig {
	return d.cfg
}

// Dispatch sends req and returns the message id assigned by the transport.
//
// Errors are *goerror.Error of TypeConfig, TypeUnsupported, TypeTransport,
// or TypeValidation for attachments the SMTP relay cannot decode.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	d.debug(ctx, "email sending options", "options", req)

	name, ch, ok := d.cfg.Lookup(lo.CoalesceOrEmpty(req.Channel, d.cfg.DefaultChannel))
	if !ok {
		return "", goerror.NewConfig(fmt.Errorf("%w: %q", ErrChannelNotFound, name))
	}

	from := resolveSender(req.From, d.settings)
	d.debug(ctx, "email sender resolved", "sender_email", from.email, "sender_name", from.name)

	var (
		id  string
		err error
	)
	switch c := ch.(type) {
	case HTTPAPIChannel:
		id, err = d.sendHTTPAPI(ctx, c, req, from)
	case SMTPRelayChannel:
		id, err = d.sendSMTPRelay(ctx, c, req, from)
	default:
		return "", goerror.NewUnsupported(fmt.Errorf("%w: channel %q", ErrUnsupportedChannel, name))
	}
	if err != nil {
		return "", err
	}

	d.debug(ctx, "email sending result", "channel", name, "message_id", id)
	return id, nil
}

// Send is Dispatch with every failure logged and reported as ok == false.
func (d *Dispatcher) Send(ctx context.Context, req Request) (string, bool) {
	id, err := d.Dispatch(ctx, req)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to send email",
			"channel", lo.CoalesceOrEmpty(req.Channel, d.cfg.DefaultChannel),
			"error_type", goerror.TypeOf(err).String(),
			"error", err,
		)
		return "", false
	}
	return id, true
}

func (d *Dispatcher) debug(ctx context.Context, msg string, args ...any) {
	if !d.cfg.Debug {
		return
	}
	d.logger.InfoContext(ctx, msg, args...)
}
