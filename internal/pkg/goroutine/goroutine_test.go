package goroutine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

func TestManager(t *testing.T) {
	t.Run("CollectsErrors", func(t *testing.T) {
		m := NewManager(4)
		boom := errors.New("boom")
		var ran atomic.Int32

		assert.True(t, m.Go(context.Background(), func(context.Context) error {
			ran.Inc()
			return nil
		}))
		assert.True(t, m.Go(context.Background(), func(context.Context) error {
			ran.Inc()
			return boom
		}))

		err := m.Wait()
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int32(2), ran.Load())
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		m := NewManager(1)

		m.Go(context.Background(), func(context.Context) error { panic("bad payload") })

		assert.ErrorIs(t, m.Wait(), ErrPanic)
	})

	t.Run("LimitReached", func(t *testing.T) {
		m := NewManager(1)
		release := make(chan struct{})

		assert.True(t, m.Go(context.Background(), func(context.Context) error {
			<-release
			return nil
		}))
		assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))

		close(release)
		assert.NoError(t, m.Wait())
	})

	t.Run("ClosedAfterWait", func(t *testing.T) {
		m := NewManager(0)
		assert.NoError(t, m.Wait())
		assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	})

	t.Run("CanceledContextSkipsTask", func(t *testing.T) {
		m := NewManager(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var ran atomic.Bool

		m.Go(ctx, func(context.Context) error {
			ran.Store(true)
			return nil
		})

		assert.NoError(t, m.Wait())
		assert.False(t, ran.Load())
	})

	t.Run("NilManager", func(t *testing.T) {
		var m *Manager
		assert.False(t, m.Go(context.Background(), nil))
		assert.NoError(t, m.Wait())
	})
}
