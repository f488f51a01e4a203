package mail

import (
	"sort"
	"strings"
)

// Kind names a channel variant.
type Kind string

const (
	// KindHTTPAPI is the transactional email HTTP API (Brevo).
	KindHTTPAPI Kind = "httpApi"
	// KindSMTPRelay is an SMTP relay.
	KindSMTPRelay Kind = "smtpRelay"
)

// Config type names accepted in the channel table.
const (
	ChannelTypeBrevo = "brevo"
	ChannelTypeSMTP  = "smtp"
)

// Channel is a sealed sum type: HTTPAPIChannel or SMTPRelayChannel.
type Channel interface {
	Kind() Kind
	channel()
}

// HTTPAPIChannel delivers through the Brevo transactional email API.
type HTTPAPIChannel struct {
	APIKey string
	// Endpoint overrides BrevoEndpoint; empty means the default.
	Endpoint string
}

// Kind implements Channel.
func (HTTPAPIChannel) Kind() Kind { return KindHTTPAPI }
func (HTTPAPIChannel) channel()   {}

// SMTPOptions are handed to the relay client as-is.
type SMTPOptions struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	SSL                bool   `mapstructure:"ssl"`
	StartTLS           string `mapstructure:"starttls"` // opportunistic (default), mandatory, none
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	LocalName          string `mapstructure:"local_name"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
}

// SMTPRelayChannel delivers through an SMTP relay.
type SMTPRelayChannel struct {
	Options SMTPOptions
}

// Kind implements Channel.
func (SMTPRelayChannel) Kind() Kind { return KindSMTPRelay }
func (SMTPRelayChannel) channel()   {}

// ProviderConfig selects the channel per message.
//
// DefaultChannel should name an entry in Channels. That is not checked until
// a message is sent through it.
type ProviderConfig struct {
	DefaultChannel string
	Channels       map[string]Channel
	// Debug logs every request, the resolved sender and the result.
	Debug bool
}

// Names returns the channel names in lexical order.
func (p ProviderConfig) Names() []string {
	names := make([]string, 0, len(p.Channels))
	for name := range p.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a channel name, exactly first and then lowercased, and
// returns the key it matched.
func (p ProviderConfig) Lookup(name string) (string, Channel, bool) {
	if ch, ok := p.Channels[name]; ok {
		return name, ch, true
	}

	lower := strings.ToLower(name)
	if ch, ok := p.Channels[lower]; ok {
		return lower, ch, true
	}
	return name, nil, false
}

// ChannelConfig is the flat shape of a channel in the configuration file.
type ChannelConfig struct {
	Type     string `mapstructure:"type"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`

	SMTPOptions `mapstructure:",squash"`
}

// Channel converts the config entry. An unknown type yields nil, which the
// Dispatcher reports as an unsupported channel when it is used.
func (c ChannelConfig) Channel() Channel {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case ChannelTypeBrevo:
		return HTTPAPIChannel{APIKey: c.APIKey, Endpoint: c.Endpoint}
	case ChannelTypeSMTP:
		return SMTPRelayChannel{Options: c.SMTPOptions}
	default:
		return nil
	}
}

// NewProviderConfig builds a ProviderConfig from the configuration table.
// Channel names are lowercased, the way the config loader reports map keys.
func NewProviderConfig(defaultChannel string, debug bool, table map[string]ChannelConfig) ProviderConfig {
	channels := make(map[string]Channel, len(table))
	for name, cc := range table {
		channels[strings.ToLower(name)] = cc.Channel()
	}

	return ProviderConfig{
		DefaultChannel: strings.ToLower(strings.TrimSpace(defaultChannel)),
		Channels:       channels,
		Debug:          debug,
	}
}
