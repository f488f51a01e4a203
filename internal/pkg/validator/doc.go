// Package validator validates inbound request structs.
//
// Besides the go-playground built-ins it registers two address rules backed by
// github.com/zostay/go-addr:
//
//	mailbox       a single RFC 5322 mailbox, e.g. `Alice <a@x.com>` or `a@x.com`
//	mailbox_list  a comma separated list of addresses
package validator
