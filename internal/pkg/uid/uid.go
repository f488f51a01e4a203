// Package uid generates identifiers for correlation ids and SMTP Message-IDs.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
