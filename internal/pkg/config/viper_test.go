package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  server:
    http:
      read_timeout_seconds: 15
instrument:
  log_mask_fields: "api_key, password,,authorization"
  enabled: true
mail:
  default_channel: transactional
  channels:
    transactional:
      type: brevo
      api_key: K
    relay:
      type: smtp
      host: smtp.example.com
      port: 587
storage:
  gcs:
    credentials_json: "eyJhIjoxfQ=="
`

func TestNewViperFromBytes(t *testing.T) {
	t.Run("RequiresType", func(t *testing.T) {
		_, err := NewViperFromBytes(" ", []byte(sample))
		assert.ErrorIs(t, err, ErrConfigTypeRequired)
	})

	t.Run("TypedGetters", func(t *testing.T) {
		cfg, err := NewViperFromBytes("yaml", []byte(sample))
		require.NoError(t, err)

		assert.Equal(t, 15*time.Second, cfg.GetSecond("app.server.http.read_timeout_seconds"))
		assert.Equal(t, []string{"api_key", "password", "authorization"}, cfg.GetArray("instrument.log_mask_fields"))
		assert.True(t, cfg.GetBool("instrument.enabled"))
		assert.Equal(t, []byte(`{"a":1}`), cfg.GetBinary("storage.gcs.credentials_json"))
		assert.Nil(t, cfg.GetBinary("mail.default_channel"))
		assert.Empty(t, cfg.GetArray("missing.key"))
		assert.NoError(t, cfg.Close())
	})

	t.Run("UnmarshalKey", func(t *testing.T) {
		cfg, err := NewViperFromBytes("yaml", []byte(sample))
		require.NoError(t, err)

		var table map[string]struct {
			Type   string `mapstructure:"type"`
			APIKey string `mapstructure:"api_key"`
			Host   string `mapstructure:"host"`
			Port   int    `mapstructure:"port"`
		}
		require.NoError(t, cfg.UnmarshalKey("mail.channels", &table))

		assert.Equal(t, "brevo", table["transactional"].Type)
		assert.Equal(t, "K", table["transactional"].APIKey)
		assert.Equal(t, 587, table["relay"].Port)
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("MAILBITE_MAIL_DEFAULT_CHANNEL", "relay")

		cfg, err := NewViperFromBytes("yaml", []byte(sample))
		require.NoError(t, err)

		assert.Equal(t, "relay", cfg.GetString("mail.default_channel"))
	})
}

func TestNewViper(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

	cfg, err := NewViper(file)
	require.NoError(t, err)

	assert.Equal(t, "transactional", cfg.GetString("mail.default_channel"))
	assert.Equal(t, 587, cfg.GetInt("mail.channels.relay.port"))

	_, err = NewViper(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
