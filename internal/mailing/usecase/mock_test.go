package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatch struct {
	mock.Mock
	cfg mail.ProviderConfig
}

func (m *mockDispatch) Dispatch(ctx context.Context, req mail.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockDispatch) Config() mail.ProviderConfig { return m.cfg }

type mockAttachment struct{ mock.Mock }

func (m *mockAttachment) Fetch(ctx context.Context, ref string) (mail.Attachment, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(mail.Attachment), args.Error(1)
}

type mockIdempotency struct{ mock.Mock }

func (m *mockIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) (string, error), opts ...idempotency.Option) (string, error) {
	args := m.Called(ctx, key)
	if run, ok := args.Get(0).(bool); ok && run {
		return fn(ctx)
	}
	return args.String(1), args.Error(2)
}

type fixture struct {
	uc         *Usecase
	dispatch   *mockDispatch
	attachment *mockAttachment
	idemp      *mockIdempotency
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := fixture{
		dispatch: &mockDispatch{cfg: mail.ProviderConfig{
			DefaultChannel: "brevo",
			Channels: map[string]mail.Channel{
				"brevo":  mail.HTTPAPIChannel{APIKey: "K"},
				"relay":  mail.SMTPRelayChannel{Options: mail.SMTPOptions{Host: "smtp.x.com", Port: 587}},
				"broken": nil,
			},
		}},
		attachment: &mockAttachment{},
		idemp:      &mockIdempotency{},
	}
	f.uc = NewMailing(Dependency{
		RepoDispatch:   f.dispatch,
		RepoAttachment: f.attachment,
		Idempotency:    f.idemp,
		Validator:      v,
		Clock:          clock.Fixed(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		Instrument:     instrument.NewNoop(),
	})

	t.Cleanup(func() {
		f.dispatch.AssertExpectations(t)
		f.attachment.AssertExpectations(t)
		f.idemp.AssertExpectations(t)
	})

	return f
}
