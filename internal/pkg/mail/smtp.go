package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/zostay/go-addr/pkg/addr"
	gomail "gopkg.in/mail.v2"
)

// RelayMail is the message handed to an SMTP relay.
//
// Only whitelisted fields exist here; Request.Extra never reaches a relay.
type RelayMail struct {
	FromName    string
	FromAddress string
	ReplyTo     string
	To          string
	Cc          string
	Bcc         string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// From returns the sender as `"Display Name" address`.
func (m RelayMail) From() string {
	return `"` + m.FromName + `" ` + m.FromAddress
}

// Relay sends one RelayMail and returns the message id it assigned.
type Relay interface {
	Send(ctx context.Context, msg RelayMail) (string, error)
}

// RelayFactory builds the relay for a channel's SMTP options.
type RelayFactory func(opts SMTPOptions) Relay

// relayMail applies the sender defaults and the text/html cross-fallback.
func relayMail(req Request, from sender, s Settings) RelayMail {
	return RelayMail{
		FromName:    lo.CoalesceOrEmpty(from.name, s.DefaultFromName),
		FromAddress: lo.CoalesceOrEmpty(from.email, s.DefaultFrom),
		ReplyTo:     lo.CoalesceOrEmpty(req.ReplyTo, s.DefaultReplyTo),
		To:          req.To,
		Cc:          req.Cc,
		Bcc:         req.Bcc,
		Subject:     req.Subject,
		Text:        lo.CoalesceOrEmpty(req.Text, req.HTML),
		HTML:        lo.CoalesceOrEmpty(req.HTML, req.Text),
		Attachments: req.Attachments,
	}
}

func (d *Dispatcher) sendSMTPRelay(ctx context.Context, ch SMTPRelayChannel, req Request, from sender) (string, error) {
	attachments, err := req.DecodeAttachments()
	if err != nil {
		return "", goerror.NewInvalidInput(err)
	}
	req.Attachments = attachments

	id, err := d.newRelay(ch.Options).Send(ctx, relayMail(req, from, d.settings))
	if err != nil {
		return "", goerror.NewTransport(err)
	}
	return id, nil
}

// SMTPRelay is a Relay backed by gopkg.in/mail.v2.
type SMTPRelay struct {
	dialer *gomail.Dialer
	clock  clock.Clocker
	uuid   uid.StringID
}

// NewSMTPRelay builds a relay for opts. Nothing is dialed until Send.
func NewSMTPRelay(opts SMTPOptions, clk clock.Clocker, uuid uid.StringID) *SMTPRelay {
	d := gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	d.RetryFailure = false
	if opts.SSL {
		d.SSL = true
	}
	if opts.LocalName != "" {
		d.LocalName = opts.LocalName
	}
	if opts.TimeoutSeconds > 0 {
		d.Timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	if opts.InsecureSkipVerify {
		//nolint:gosec // explicitly requested per channel for self-signed relays
		d.TLSConfig = &tls.Config{ServerName: opts.Host, InsecureSkipVerify: true}
	}
	switch strings.ToLower(opts.StartTLS) {
	case "mandatory":
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = gomail.NoStartTLS
	default:
		d.StartTLSPolicy = gomail.OpportunisticStartTLS
	}

	return &SMTPRelay{dialer: d, clock: clk, uuid: uuid}
}

// Send builds the MIME message and delivers it in a single SMTP session.
func (r *SMTPRelay) Send(ctx context.Context, m RelayMail) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg, id := r.build(m)

	if err := r.dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("mail: smtp relay %s:%d: %w", r.dialer.Host, r.dialer.Port, err)
	}

	return id, nil
}

func (r *SMTPRelay) build(m RelayMail) (*gomail.Message, string) {
	msg := gomail.NewMessage()

	msg.SetAddressHeader("From", m.FromAddress, strings.TrimSpace(m.FromName))
	msg.SetHeader("To", parseAddressList(m.To)...)
	if cc := parseAddressList(m.Cc); len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	if bcc := parseAddressList(m.Bcc); len(bcc) > 0 {
		msg.SetHeader("Bcc", bcc...)
	}
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetDateHeader("Date", r.clock.Now())

	id := messageID(r.uuid.Generate(), m.FromAddress)
	msg.SetHeader("Message-ID", id)

	switch {
	case m.Text != "" && m.HTML != "":
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	default:
		msg.SetBody("text/plain", m.Text)
	}

	for _, a := range m.Attachments {
		var settings []gomail.FileSetting
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		if len(a.Content) > 0 {
			msg.AttachReader(a.Filename, bytes.NewReader(a.Content), settings...)
			continue
		}
		if a.Path != "" {
			if a.Filename != "" {
				settings = append(settings, gomail.Rename(a.Filename))
			}
			msg.Attach(a.Path, settings...)
		}
	}

	return msg, id
}

// parseAddressList splits an RFC 5322 address list into single mailboxes,
// so quoted display names may contain commas. Group syntax is flattened.
// A list that does not parse is passed through whole for the relay to reject.
func parseAddressList(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	list, err := addr.ParseEmailAddressList(v)
	if err != nil {
		return []string{v}
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		switch a := a.(type) {
		case *addr.Mailbox:
			out = append(out, a.String())
		case *addr.Group:
			for _, mb := range a.MailboxList() {
				out = append(out, mb.String())
			}
		}
	}
	return out
}

func messageID(unique, fromAddress string) string {
	domain := "localhost"
	if at := strings.LastIndex(fromAddress, "@"); at >= 0 && at < len(fromAddress)-1 {
		domain = fromAddress[at+1:]
	}
	return "<" + unique + "@" + domain + ">"
}
