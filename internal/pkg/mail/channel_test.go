package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderConfig(t *testing.T) {
	cfg := NewProviderConfig("transactional", true, map[string]ChannelConfig{
		"transactional": {Type: "brevo", APIKey: "K"},
		"relay": {Type: " SMTP ", SMTPOptions: SMTPOptions{
			Host: "smtp.example.com", Port: 587, StartTLS: "mandatory",
		}},
		"legacy": {Type: "sendmail"},
	})

	assert.Equal(t, "transactional", cfg.DefaultChannel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"legacy", "relay", "transactional"}, cfg.Names())

	assert.Equal(t, HTTPAPIChannel{APIKey: "K"}, cfg.Channels["transactional"])
	assert.Equal(t, KindHTTPAPI, cfg.Channels["transactional"].Kind())

	relay, ok := cfg.Channels["relay"].(SMTPRelayChannel)
	assert.True(t, ok)
	assert.Equal(t, KindSMTPRelay, relay.Kind())
	assert.Equal(t, 587, relay.Options.Port)

	legacy, present := cfg.Channels["legacy"]
	assert.True(t, present)
	assert.Nil(t, legacy)
}

func TestProviderConfig_Lookup(t *testing.T) {
	cfg := NewProviderConfig("Primary", false, map[string]ChannelConfig{
		"primary": {Type: "brevo", APIKey: "K"},
		"Backup":  {Type: "smtp"},
	})

	assert.Equal(t, "primary", cfg.DefaultChannel)
	assert.Equal(t, []string{"backup", "primary"}, cfg.Names())

	tests := []struct {
		name    string
		lookup  string
		wantKey string
		wantOK  bool
	}{
		{name: "Default", lookup: cfg.DefaultChannel, wantKey: "primary", wantOK: true},
		{name: "MixedCase", lookup: "Primary", wantKey: "primary", wantOK: true},
		{name: "UpperCase", lookup: "BACKUP", wantKey: "backup", wantOK: true},
		{name: "Missing", lookup: "other", wantKey: "other", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _, ok := cfg.Lookup(tt.lookup)

			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantOK, ok)
		})
	}

	t.Run("ExactKeyFirst", func(t *testing.T) {
		direct := ProviderConfig{Channels: map[string]Channel{"Mixed": HTTPAPIChannel{APIKey: "A"}}}

		key, ch, ok := direct.Lookup("Mixed")

		assert.True(t, ok)
		assert.Equal(t, "Mixed", key)
		assert.Equal(t, HTTPAPIChannel{APIKey: "A"}, ch)
	})
}
