package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/mailing/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, attrs map[string]string) context.Context {
	if cid := attrs[event.CorrelationAttribute]; cid != "" {
		return instrument.SetCorrelationID(ctx, cid)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// MailSendRequested sends one queued email.
//
// Messages that can never succeed (bad JSON, invalid fields, unknown channel)
// are logged and acknowledged. Provider and infrastructure failures are
// returned so the broker can redeliver.
func (h *MQHandler) MailSendRequested(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Attributes())

	ctx, span := h.ins.Tracer("mailing.inbound.mq").Start(ctx, "MailSendRequested")
	defer span.End()

	body := msg.Body()

	var payload event.MailSendRequestedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of mail send requested", "msg_id", msg.ID(), "msg_body", string(body), "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: mail send requested", "msg_id", msg.ID(), "source", msg.Source(), "request", payload.Request)

	out, err := h.uc.SendMail(ctx, usecase.SendMailInput{
		From:           payload.From,
		To:             payload.To,
		Cc:             payload.Cc,
		Bcc:            payload.Bcc,
		ReplyTo:        payload.ReplyTo,
		Subject:        payload.Subject,
		Text:           payload.Text,
		HTML:           payload.HTML,
		Channel:        payload.Channel,
		Attachments:    payload.Attachments,
		RawAttachments: payload.RawAttachments,
		Extra:          payload.Extra,
		IdempotencyKey: idempotencyKey(msg),
		Caller:         msg.Source(),
	})
	if err != nil {
		switch goerror.TypeOf(err) {
		case goerror.TypeValidation, goerror.TypeConfig, goerror.TypeUnsupported:
			slog.ErrorContext(ctx, "dropping undeliverable mail send request", "msg_id", msg.ID(), "error_type", goerror.TypeOf(err).String(), "error", err)
			return nil
		default:
			slog.ErrorContext(ctx, "failed to consume mail send requested", "msg_id", msg.ID(), "error_type", goerror.TypeOf(err).String(), "error", err)
			return err
		}
	}

	slog.InfoContext(ctx, "consumed mail send requested", "msg_id", msg.ID(), "message_id", out.MessageID, "channel", out.Channel, "replayed", out.Replayed)
	return nil
}

// idempotencyKey prefers the producer's key and falls back to the broker
// message id, so a redelivered message is not sent twice.
func idempotencyKey(msg messaging.Message) string {
	if key := msg.Attributes()[event.IdempotencyAttribute]; key != "" {
		return key
	}
	if msg.ID() == "" {
		return ""
	}
	return "mq:" + lo.CoalesceOrEmpty(msg.Source(), event.MailSendRequestedDestination) + ":" + msg.ID()
}
