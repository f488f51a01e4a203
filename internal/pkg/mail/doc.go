// Package mail dispatches email messages through a named channel.
//
// A channel is either a transactional email HTTP API (Brevo) or an SMTP
// relay. The Dispatcher resolves the channel for each Request, reshapes the
// message into what that channel's transport expects and makes exactly one
// outbound call. There is no queueing, retry or delivery tracking here; those
// belong to the caller.
//
// Dispatch returns typed errors (see goerror.TypeConfig, goerror.TypeUnsupported
// and goerror.TypeTransport). Send is the compatibility boundary that logs the
// error and collapses it into a boolean.
package mail
