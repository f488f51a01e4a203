package event

import "github.com/shandysiswandi/mailbite/internal/pkg/mail"

// MailSendRequestedDestination is where producers publish mail to be sent.
const MailSendRequestedDestination string = "mail.send.requested"

// MailSendRequestedConsumer is the consumer group / NSQ channel of this service.
const MailSendRequestedConsumer string = "mail.send.requested.mailbite"

// MailSendRequestedMessage is the payload on MailSendRequestedDestination.
//
// The body is the same JSON as the HTTP send request; keys outside the
// named fields are forwarded to the HTTP API channel.
type MailSendRequestedMessage struct {
	mail.Request
}

// IdempotencyAttribute is the message attribute/header carrying the idempotency key.
const IdempotencyAttribute string = "idempotency_key"

// CorrelationAttribute is the message attribute/header carrying the correlation id.
const CorrelationAttribute string = "cID"
