package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/mailbite/internal/mailing/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
)

const healthTimeout = 2 * time.Second

type HTTPEndpoint struct {
	uc     uc
	checks map[string]HealthCheck
}

// SendMail sends one email through the requested or default channel.
// The Idempotency-Key header makes retries return the first message id.
func (h *HTTPEndpoint) SendMail(r *router.Request) (any, error) {
	var req SendMailRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	var caller string
	if clm := jwt.GetAuth(r.Context()); clm != nil {
		caller = clm.Caller()
	}

	out, err := h.uc.SendMail(r.Context(), usecase.SendMailInput{
		From:           req.From,
		To:             req.To,
		Cc:             req.Cc,
		Bcc:            req.Bcc,
		ReplyTo:        req.ReplyTo,
		Subject:        req.Subject,
		Text:           req.Text,
		HTML:           req.HTML,
		Channel:        req.Channel,
		Attachments:    req.Attachments,
		RawAttachments: req.RawAttachments,
		Extra:          req.Extra,
		IdempotencyKey: r.GetHeader(HeaderIdempotencyKey),
		Caller:         caller,
	})
	if err != nil {
		return nil, err
	}

	return SendMailResponse{
		MessageID: out.MessageID,
		Channel:   out.Channel,
		Replayed:  out.Replayed,
	}, nil
}

func (h *HTTPEndpoint) ListChannels(r *router.Request) (any, error) {
	items := h.uc.ListChannels(r.Context())

	resp := make([]ChannelResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, ChannelResponse{
			Name:    item.Name,
			Kind:    item.Kind,
			Default: item.Default,
		})
	}

	return ChannelsResponse{Channels: resp}, nil
}

func (h *HTTPEndpoint) Health(r *router.Request) (any, error) {
	resp := HealthResponse{Status: "ok"}
	if len(h.checks) == 0 {
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp.Checks = make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	return resp, nil
}
