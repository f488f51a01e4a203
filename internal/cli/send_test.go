package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	got mail.Request
	id  string
	ok  bool
}

func (f *fakeSender) Send(_ context.Context, req mail.Request) (string, bool) {
	f.got = req
	return f.id, f.ok
}

func stubSender(t *testing.T, s sender, err error) *bool {
	t.Helper()

	closed := false
	orig := newSender
	newSender = func(context.Context) (sender, func(), error) {
		if err != nil {
			return nil, nil, err
		}
		return s, func() { closed = true }, nil
	}
	t.Cleanup(func() {
		newSender = orig
		sendFlags = mail.Request{}
	})

	return &closed
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		sendCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunSend(t *testing.T) {
	t.Run("PrintsMessageID", func(t *testing.T) {
		fs := &fakeSender{id: "<abc@mailbite>", ok: true}
		closed := stubSender(t, fs, nil)

		out, err := runRoot(t, "send",
			"--to", "bob@example.com",
			"--subject", "Hi",
			"--html", "<b>x</b>",
			"--from", "Alice <alice@example.com>",
			"--channel", "relay",
		)

		require.NoError(t, err)
		assert.Contains(t, out, "<abc@mailbite>")
		assert.True(t, *closed)
		assert.Equal(t, mail.Request{
			From:    "Alice <alice@example.com>",
			To:      "bob@example.com",
			Subject: "Hi",
			HTML:    "<b>x</b>",
			Channel: "relay",
		}, fs.got)
	})

	t.Run("FailedSend", func(t *testing.T) {
		stubSender(t, &fakeSender{ok: false}, nil)

		_, err := runRoot(t, "send", "--to", "bob@example.com", "--subject", "Hi", "--text", "x")

		assert.ErrorIs(t, err, ErrNotSent)
	})

	t.Run("ConfigError", func(t *testing.T) {
		boom := errors.New("load config: boom")
		stubSender(t, nil, boom)

		_, err := runRoot(t, "send", "--to", "bob@example.com", "--subject", "Hi", "--text", "x")

		assert.ErrorIs(t, err, boom)
	})

	t.Run("BodyRequired", func(t *testing.T) {
		fs := &fakeSender{ok: true}
		stubSender(t, fs, nil)

		_, err := runRoot(t, "send", "--to", "bob@example.com", "--subject", "Hi")

		require.Error(t, err)
		assert.Empty(t, fs.got.To)
	})
}
