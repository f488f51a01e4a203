package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoDispatch interface {
	Dispatch(ctx context.Context, req mail.Request) (string, error)
	Config() mail.ProviderConfig
}

type repoAttachment interface {
	// Fetch loads a "storage://bucket/key" reference.
	Fetch(ctx context.Context, ref string) (mail.Attachment, error)
}

type Usecase struct {
	repoDispatch   repoDispatch
	repoAttachment repoAttachment
	idemp          idempotency.Idempotency
	validator      validator.Validator
	clock          clock.Clocker
	ins            instrument.Instrumentation
	idempTTL       time.Duration

	dispatchTotal    metric.Int64Counter
	dispatchDuration metric.Float64Histogram
}

type Dependency struct {
	RepoDispatch   repoDispatch
	RepoAttachment repoAttachment
	Idempotency    idempotency.Idempotency
	Validator      validator.Validator
	Clock          clock.Clocker
	Config         config.Config
	Instrument     instrument.Instrumentation
}

func NewMailing(dep Dependency) *Usecase {
	uc := &Usecase{
		repoDispatch:   dep.RepoDispatch,
		repoAttachment: dep.RepoAttachment,
		idemp:          dep.Idempotency,
		validator:      dep.Validator,
		clock:          dep.Clock,
		ins:            dep.Instrument,
	}
	if dep.Config != nil {
		uc.idempTTL = dep.Config.GetSecond("modules.mailing.idempotency_ttl_seconds")
	}

	meter := dep.Instrument.Meter("mailing.usecase")

	var err error
	uc.dispatchTotal, err = meter.Int64Counter("mail.dispatch.total",
		metric.WithDescription("Number of messages handed to a mail channel"))
	if err != nil {
		slog.Error("failed to create mail dispatch counter", "error", err)
	}

	uc.dispatchDuration, err = meter.Float64Histogram("mail.dispatch.duration",
		metric.WithDescription("Mail channel call duration in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create mail dispatch histogram", "error", err)
	}

	return uc
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("mailing.usecase").Start(ctx, name)
}
