package entity

// KindUnsupported is reported for a configured channel whose type has no transport.
const KindUnsupported = "unsupported"

// Channel describes a configured delivery channel without its credentials.
type Channel struct {
	Name    string
	Kind    string
	Default bool
}
