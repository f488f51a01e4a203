package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/mailing/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

type SendMailInput struct {
	From        string            `validate:"omitempty,mailbox"`
	To          string            `validate:"required,mailbox_list"`
	Cc          string            `validate:"omitempty,mailbox_list"`
	Bcc         string            `validate:"omitempty,mailbox_list"`
	ReplyTo     string            `validate:"omitempty,mailbox"`
	Subject     string            `validate:"required,max=998"`
	Text        string            `validate:"required_without=HTML"`
	HTML        string            `validate:"required_without=Text"`
	Channel     string            `validate:"omitempty,max=64"`
	Attachments []mail.Attachment `validate:"max=20"`
	// RawAttachments is the attachments JSON as received. It is decoded into
	// Attachments and forwarded verbatim to HTTP API channels.
	RawAttachments json.RawMessage
	Extra          map[string]any

	// IdempotencyKey makes retries of the same send return the first message id.
	// Keys are tracked per Caller.
	IdempotencyKey string `validate:"omitempty,max=255"`
	// Caller names the authenticated service or the broker source.
	Caller string
}

type SendMailOutput struct {
	MessageID string
	Channel   string
	// Replayed is true when the id comes from an earlier send with the same IdempotencyKey.
	Replayed bool
}

func (s *Usecase) SendMail(ctx context.Context, in SendMailInput) (_ SendMailOutput, err error) {
	ctx, span := s.startSpan(ctx, "SendMail")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	channel, ch, _ := s.repoDispatch.Config().Lookup(lo.CoalesceOrEmpty(in.Channel, s.repoDispatch.Config().DefaultChannel))
	span.SetAttributes(attribute.String("mail.channel", channel))

	in, err = decodeAttachments(in, ch)
	if err != nil {
		slog.WarnContext(ctx, "invalid send mail attachments", "caller", in.Caller, "error", err)
		return SendMailOutput{}, err
	}

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid send mail input", "caller", in.Caller, "error", err)
		return SendMailOutput{}, goerror.NewInvalidInput(err)
	}

	send := func(ctx context.Context) (string, error) {
		req := mail.Request{
			From:           in.From,
			To:             in.To,
			Cc:             in.Cc,
			Bcc:            in.Bcc,
			ReplyTo:        in.ReplyTo,
			Subject:        in.Subject,
			Text:           in.Text,
			HTML:           in.HTML,
			Channel:        in.Channel,
			RawAttachments: in.RawAttachments,
			Extra:          in.Extra,
		}

		if hasStorageRef(in.Attachments) {
			attachments, err := s.resolveAttachments(ctx, in.Attachments)
			if err != nil {
				return "", err
			}
			req.Attachments = attachments
			req.RawAttachments = nil
		} else if len(in.RawAttachments) == 0 {
			req.Attachments = in.Attachments
		}

		return s.dispatch(ctx, channel, ch, req)
	}

	if in.IdempotencyKey == "" || s.idemp == nil {
		id, err := send(ctx)
		if err != nil {
			return SendMailOutput{}, err
		}
		return SendMailOutput{MessageID: id, Channel: channel}, nil
	}

	id, err := s.idemp.Exec(ctx, idempotencyKey(in), send, idempotency.WithStateTTL(s.idempTTL))
	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.InfoContext(ctx, "replayed send mail", "caller", in.Caller, "idempotency_key", in.IdempotencyKey, "message_id", id)
		return SendMailOutput{MessageID: id, Channel: channel, Replayed: true}, nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return SendMailOutput{}, goerror.NewBusiness("A send with this Idempotency-Key is in progress", goerror.CodeConflict)
	case err != nil:
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return SendMailOutput{}, err
		}
		slog.ErrorContext(ctx, "failed to track idempotency key", "idempotency_key", in.IdempotencyKey, "error", err)
		return SendMailOutput{}, goerror.NewServer(err)
	}

	return SendMailOutput{MessageID: id, Channel: channel}, nil
}

func (s *Usecase) dispatch(ctx context.Context, channel string, ch mail.Channel, req mail.Request) (string, error) {
	kind := entity.KindUnsupported
	if ch != nil {
		kind = string(ch.Kind())
	}

	start := s.clock.Now()
	id, err := s.repoDispatch.Dispatch(ctx, req)
	elapsed := s.clock.Now().Sub(start)

	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("kind", kind),
		attribute.String("outcome", entity.Outcome(err)),
	)
	if s.dispatchTotal != nil {
		s.dispatchTotal.Add(ctx, 1, attrs)
	}
	if s.dispatchDuration != nil {
		s.dispatchDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}

	if err != nil {
		slog.ErrorContext(ctx, "failed to dispatch email",
			"channel", channel,
			"kind", kind,
			"error_type", goerror.TypeOf(err).String(),
			"error", err,
		)
		return "", err
	}

	slog.InfoContext(ctx, "email dispatched", "channel", channel, "kind", kind, "message_id", id)
	return id, nil
}

// idempotencyKey scopes the key to the caller, so two callers never share
// a message id.
func idempotencyKey(in SendMailInput) string {
	if in.Caller == "" {
		return in.IdempotencyKey
	}
	return in.Caller + ":" + in.IdempotencyKey
}

// decodeAttachments fills in.Attachments from the raw JSON and rejects paths
// other than storage references. Attachments an HTTP API channel receives
// verbatim may use any shape the API accepts.
func decodeAttachments(in SendMailInput, ch mail.Channel) (SendMailInput, error) {
	attachments, err := mail.Request{Attachments: in.Attachments, RawAttachments: in.RawAttachments}.DecodeAttachments()
	if err != nil {
		if _, ok := ch.(mail.HTTPAPIChannel); ok {
			return in, nil
		}
		return in, goerror.NewInvalidInput(nil, "attachments", "attachments must be a list of {filename, contentType, content, path}")
	}

	for _, a := range attachments {
		if a.Path != "" && !storage.IsRef(a.Path) {
			return in, goerror.NewInvalidInput(nil, "attachments", "path must be a "+storage.Scheme+"bucket/key reference")
		}
	}

	in.Attachments = attachments
	return in, nil
}

func hasStorageRef(attachments []mail.Attachment) bool {
	for _, a := range attachments {
		if len(a.Content) == 0 && storage.IsRef(a.Path) {
			return true
		}
	}
	return false
}

// resolveAttachments replaces storage references with the object content.
// Inline attachments pass through unchanged.
func (s *Usecase) resolveAttachments(ctx context.Context, in []mail.Attachment) ([]mail.Attachment, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make([]mail.Attachment, 0, len(in))
	for _, a := range in {
		if len(a.Content) > 0 || !storage.IsRef(a.Path) {
			out = append(out, a)
			continue
		}

		if s.repoAttachment == nil {
			return nil, goerror.NewInvalidInput(nil, "attachments", "storage references are not enabled")
		}

		fetched, err := s.repoAttachment.Fetch(ctx, a.Path)
		switch {
		case errors.Is(err, storage.ErrInvalidRef):
			return nil, goerror.NewInvalidInput(nil, "attachments", "invalid storage reference "+a.Path)
		case errors.Is(err, storage.ErrObjectNotFound):
			return nil, goerror.NewInvalidInput(nil, "attachments", "attachment not found "+a.Path)
		case errors.Is(err, storage.ErrObjectTooLarge):
			return nil, goerror.NewInvalidInput(nil, "attachments", "attachment too large "+a.Path)
		case err != nil:
			slog.ErrorContext(ctx, "failed to fetch attachment", "path", a.Path, "error", err)
			return nil, goerror.NewServer(err)
		}

		out = append(out, mail.Attachment{
			Filename:    lo.CoalesceOrEmpty(a.Filename, fetched.Filename),
			ContentType: lo.CoalesceOrEmpty(a.ContentType, fetched.ContentType),
			Content:     fetched.Content,
		})
	}

	return out, nil
}
