package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestHandler(t *testing.T) {
	t.Run("MasksConfiguredKeys", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(newHandler(&Config{
			ServiceName: "mailbite",
			MaskFields:  []string{"API_KEY", " password ", ""},
		}, &buf, nil))

		logger.Info("dispatch",
			"api_key", "secret",
			"body", `{"sender":{"email":"a@x.com"},"password":"p"}`,
			slog.Group("smtp", "password", "p", "host", "smtp.example.com"),
			"headers", map[string]string{"Api_Key": "K"},
		)

		line := decodeLine(t, &buf)
		assert.Equal(t, "***", line["api_key"])
		assert.JSONEq(t, `{"sender":{"email":"a@x.com"},"password":"***"}`, line["body"].(string))
		assert.Equal(t, map[string]any{"password": "***", "host": "smtp.example.com"}, line["smtp"])
		assert.Equal(t, map[string]any{"Api_Key": "***"}, line["headers"])
		assert.Equal(t, "mailbite", line["service"])
		assert.Equal(t, "INFO", line["severity"])
		assert.Contains(t, line, "ts")
	})

	t.Run("MasksWithAttrs", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(newHandler(&Config{MaskFields: []string{"authorization"}}, &buf, nil))

		logger.With("authorization", "Bearer x").Info("request")

		assert.Equal(t, "***", decodeLine(t, &buf)["authorization"])
	})

	t.Run("CorrelationID", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(newHandler(&Config{}, &buf, nil))

		ctx := SetCorrelationID(context.Background(), "cid-1")
		logger.InfoContext(ctx, "hello")

		line := decodeLine(t, &buf)
		assert.Equal(t, "cid-1", line["_cID"])
		assert.NotContains(t, line, "service")
	})

	t.Run("LevelGate", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(newHandler(&Config{LogLevel: "warn"}, &buf, nil))

		logger.Info("dropped")
		assert.Zero(t, buf.Len())

		logger.Warn("kept")
		assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
	})
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.NotEmpty(t, GetCorrelationID(SetCorrelationID(context.Background(), "")))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}

func TestNew(t *testing.T) {
	inst, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	assert.NotNil(t, inst.Tracer("t"))
	assert.NotNil(t, inst.Meter("m"))
	assert.NoError(t, inst.Shutdown(context.Background()))
	assert.Equal(t, 0.0, sampleRatio(-1))
	assert.Equal(t, 1.0, sampleRatio(3))
}
