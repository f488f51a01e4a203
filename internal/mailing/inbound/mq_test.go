package inbound

import (
	"context"
	"testing"

	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConsumer struct {
	source string
}

func (c *recordingConsumer) Consume(_ context.Context, source string, handler messaging.Handler) error {
	c.source = source
	if handler == nil {
		return messaging.ErrHandlerRequired
	}
	return nil
}

func (c *recordingConsumer) Close() error { return nil }

func TestRegisterMQConsumer(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantStart  bool
		wantSource string
	}{
		{name: "Disabled", yaml: "modules:\n  mailing:\n    consumer:\n      enabled: false\n"},
		{
			name:       "DefaultDestination",
			yaml:       "modules:\n  mailing:\n    consumer:\n      enabled: true\n",
			wantStart:  true,
			wantSource: "mail.send.requested",
		},
		{
			name:       "CustomDestination",
			yaml:       "modules:\n  mailing:\n    consumer:\n      enabled: true\n      destination: outbox.mail\n",
			wantStart:  true,
			wantSource: "outbox.mail",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			require.NoError(t, err)
			routine := goroutine.NewManager(2)
			consumer := &recordingConsumer{}

			started := RegisterMQConsumer(context.Background(), cfg, routine, consumer, fixedID("cid"), &mockUsecase{}, instrument.NewNoop())

			require.NoError(t, routine.Wait())
			assert.Equal(t, tt.wantStart, started)
			assert.Equal(t, tt.wantSource, consumer.source)
		})
	}
}
