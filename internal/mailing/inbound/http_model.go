package inbound

import (
	"net/http"

	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
)

// HeaderIdempotencyKey deduplicates retried sends.
const HeaderIdempotencyKey = "Idempotency-Key"

// SendMailRequest is the JSON body of a send. Unknown keys are kept and
// forwarded to HTTP API channels.
type SendMailRequest struct {
	mail.Request
}

type SendMailResponse struct {
	MessageID string `json:"message_id"`
	Channel   string `json:"channel"`
	Replayed  bool   `json:"replayed,omitempty"`
}

func (r SendMailResponse) Message() string {
	if r.Replayed {
		return "Email was already sent with this Idempotency-Key"
	}
	return "Email has been sent"
}

type ChannelResponse struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

type ChannelsResponse struct {
	Channels []ChannelResponse `json:"channels"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (r HealthResponse) StatusCode() int {
	if r.Status != "ok" {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
