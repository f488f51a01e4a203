package dispatch

import (
	"context"

	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Mail struct {
	client *mail.Dispatcher
	ins    instrument.Instrumentation
}

func New(client *mail.Dispatcher, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, ins: ins}
}

func (m *Mail) Dispatch(ctx context.Context, req mail.Request) (string, error) {
	ctx, span := m.ins.Tracer("mailing.outbound.dispatch").Start(ctx, "Dispatch")
	defer span.End()

	id, err := m.client.Dispatch(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("mail.message_id", id))
	return id, nil
}

func (m *Mail) Config() mail.ProviderConfig {
	return m.client.Config()
}
