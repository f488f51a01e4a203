package mail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Settings are the process-wide sender defaults.
type Settings struct {
	// DefaultFrom is the sender address used when Request.From is empty.
	DefaultFrom string `mapstructure:"default_from"`
	// DefaultReplyTo is used when Request.ReplyTo is empty.
	DefaultReplyTo string `mapstructure:"default_reply_to"`
	// DefaultFromName is the sender display name used when Request.From is empty.
	DefaultFromName string `mapstructure:"default_from_name"`
}

// Attachment is a file carried by the SMTP relay.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	// Content is base64 in JSON.
	Content []byte `json:"content,omitempty"`
	// Path is used when Content is empty. The relay attaches the local file,
	// so only trusted callers may set it; the mailing service accepts
	// "storage://bucket/key" references only.
	Path string `json:"path,omitempty"`
}

// ErrInvalidAttachments is returned when attachments JSON does not decode
// into []Attachment.
var ErrInvalidAttachments = errors.New("mail: invalid attachments")

// Request is a single message to send.
//
// To, Subject and at least one of Text/HTML are logically required but not
// checked here. Every JSON key that is not a named field is kept in Extra.
type Request struct {
	From        string
	To          string
	Cc          string
	Bcc         string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Channel     string
	Attachments []Attachment
	// RawAttachments is the attachments JSON as received. The HTTP API gets
	// it verbatim; the SMTP relay decodes it when Attachments is empty.
	RawAttachments json.RawMessage
	Extra          map[string]any
}

// DecodeAttachments returns Attachments, or RawAttachments decoded when
// Attachments is empty.
func (r Request) DecodeAttachments() ([]Attachment, error) {
	if len(r.Attachments) > 0 {
		return r.Attachments, nil
	}

	raw := bytes.TrimSpace(r.RawAttachments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var out []Attachment
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAttachments, err)
	}
	return out, nil
}

var requestKeys = map[string]struct{}{
	"from": {}, "to": {}, "cc": {}, "bcc": {}, "replyTo": {}, "subject": {},
	"text": {}, "html": {}, "channel": {}, "attachments": {},
}

type requestJSON struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Cc      string `json:"cc,omitempty"`
	Bcc     string `json:"bcc,omitempty"`
	ReplyTo string `json:"replyTo,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
	Channel string `json:"channel,omitempty"`
	// Attachments is a json.RawMessage or []Attachment.
	Attachments any `json:"attachments,omitempty"`
}

// UnmarshalJSON decodes the named fields and collects the rest into Extra.
// Attachments are kept as raw JSON in RawAttachments.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var named requestJSON
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	var attachments json.RawMessage
	if v, ok := raw["attachments"]; ok {
		attachments = append(json.RawMessage(nil), v...)
	}

	var extra map[string]any
	for key, value := range raw {
		if _, ok := requestKeys[key]; ok {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = v
	}

	*r = Request{
		From:           named.From,
		To:             named.To,
		Cc:             named.Cc,
		Bcc:            named.Bcc,
		ReplyTo:        named.ReplyTo,
		Subject:        named.Subject,
		Text:           named.Text,
		HTML:           named.HTML,
		Channel:        named.Channel,
		RawAttachments: attachments,
		Extra:          extra,
	}

	return nil
}

// MarshalJSON flattens Extra next to the named fields. Named fields win.
func (r Request) MarshalJSON() ([]byte, error) {
	named, err := json.Marshal(requestJSON{
		From:        r.From,
		To:          r.To,
		Cc:          r.Cc,
		Bcc:         r.Bcc,
		ReplyTo:     r.ReplyTo,
		Subject:     r.Subject,
		Text:        r.Text,
		HTML:        r.HTML,
		Channel:     r.Channel,
		Attachments: r.attachmentsJSON(),
	})
	if err != nil || len(r.Extra) == 0 {
		return named, err
	}

	out := make(map[string]any, len(r.Extra)+len(requestKeys))
	for k, v := range r.Extra {
		out[k] = v
	}

	var fields map[string]any
	if err := json.Unmarshal(named, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}

	return json.Marshal(out)
}

func (r Request) attachmentsJSON() any {
	if len(r.Attachments) > 0 {
		return r.Attachments
	}
	if len(r.RawAttachments) > 0 {
		return r.RawAttachments
	}
	return nil
}

// LogValue keeps attachment bytes and bodies out of the logs.
func (r Request) LogValue() slog.Value {
	//nolint:errcheck // undecodable attachments are logged without names
	attachments, _ := r.DecodeAttachments()
	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		names = append(names, a.Filename)
	}

	extraKeys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extraKeys = append(extraKeys, k)
	}

	return slog.GroupValue(
		slog.String("from", r.From),
		slog.String("to", r.To),
		slog.String("cc", r.Cc),
		slog.String("bcc", r.Bcc),
		slog.String("reply_to", r.ReplyTo),
		slog.String("subject", r.Subject),
		slog.String("channel", r.Channel),
		slog.Int("text_len", len(r.Text)),
		slog.Int("html_len", len(r.HTML)),
		slog.Any("attachments", names),
		slog.Any("extra_keys", extraKeys),
	)
}
