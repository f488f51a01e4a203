package inbound

import (
	"context"
	"time"

	"github.com/shandysiswandi/mailbite/internal/mailing/entity"
	"github.com/shandysiswandi/mailbite/internal/mailing/usecase"
	"github.com/stretchr/testify/mock"
)

type mockUsecase struct{ mock.Mock }

func (m *mockUsecase) SendMail(ctx context.Context, in usecase.SendMailInput) (usecase.SendMailOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(usecase.SendMailOutput), args.Error(1)
}

func (m *mockUsecase) ListChannels(ctx context.Context) []entity.Channel {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Channel)
}

type fakeMessage struct {
	id     string
	source string
	body   string
	attrs  map[string]string
}

func (f fakeMessage) Body() []byte                  { return []byte(f.body) }
func (f fakeMessage) ID() string                    { return f.id }
func (f fakeMessage) Source() string                { return f.source }
func (f fakeMessage) Attributes() map[string]string { return f.attrs }
func (f fakeMessage) Timestamp() time.Time          { return time.Time{} }

type fixedID string

func (f fixedID) Generate() string { return string(f) }
