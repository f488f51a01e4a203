package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

// BrevoEndpoint is the transactional email endpoint of the Brevo v3 API.
const BrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

const maxErrorBodyBytes = 4 * 1024

// ErrHTTPAPIStatus is wrapped when the HTTP API answers with a non-2xx status.
var ErrHTTPAPIStatus = errors.New("mail: http api returned non-success status")

// HTTPDoer is the part of *http.Client used by the HTTP API transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// httpAPIBody builds the JSON body for the HTTP API.
//
// Extra keys are merged last, so they can replace sender, textContent,
// htmlContent or attachments but never the fields they were split from.
// Empty strings are left out rather than posted as "".
func httpAPIBody(req Request, from sender, s Settings) map[string]any {
	body := map[string]any{
		"sender":  address{Name: from.name, Email: from.email},
		"to":      []address{{Email: req.To}},
		"replyTo": address{Email: lo.CoalesceOrEmpty(req.ReplyTo, s.DefaultReplyTo)},
		"subject": req.Subject,
	}
	if req.Cc != "" {
		body["cc"] = req.Cc
	}
	if req.Bcc != "" {
		body["bcc"] = req.Bcc
	}
	if req.Text != "" {
		body["textContent"] = req.Text
	}
	if req.HTML != "" {
		body["htmlContent"] = req.HTML
	}
	if a := httpAPIAttachments(req); a != nil {
		body["attachments"] = a
	}

	return lo.Assign(body, req.Extra)
}

type httpAPIAttachment struct {
	Name    string `json:"name,omitempty"`
	Content []byte `json:"content,omitempty"`
}

// httpAPIAttachments forwards the attachments JSON as received. Attachments
// set in Go are encoded in the API's {name, content} shape.
func httpAPIAttachments(req Request) any {
	if len(req.Attachments) == 0 {
		if len(req.RawAttachments) == 0 {
			return nil
		}
		return req.RawAttachments
	}

	out := make([]httpAPIAttachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		out = append(out, httpAPIAttachment{Name: a.Filename, Content: a.Content})
	}
	return out
}

type httpAPIResponse struct {
	MessageID string `json:"messageId"`
}

func (d *Dispatcher) sendHTTPAPI(ctx context.Context, ch HTTPAPIChannel, req Request, from sender) (string, error) {
	payload, err := json.Marshal(httpAPIBody(req, from, d.settings))
	if err != nil {
		return "", goerror.NewTransport(fmt.Errorf("mail: encode http api body: %w", err))
	}

	endpoint := lo.CoalesceOrEmpty(ch.Endpoint, BrevoEndpoint)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", goerror.NewTransport(fmt.Errorf("mail: build http api request: %w", err))
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("api-key", ch.APIKey)

	resp, err := d.client.Do(hreq)
	if err != nil {
		return "", goerror.NewTransport(fmt.Errorf("mail: http api call: %w", err))
	}
	defer func() {
		//nolint:errcheck // body already consumed
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		//nolint:errcheck // best effort for the error message only
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", goerror.NewTransport(fmt.Errorf("%w: %d: %s", ErrHTTPAPIStatus, resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	var out httpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return "", goerror.NewTransport(fmt.Errorf("mail: decode http api response: %w", err))
	}

	return out.MessageID, nil
}
