package usecase

import (
	"context"
	"testing"

	"github.com/shandysiswandi/mailbite/internal/mailing/entity"
	"github.com/stretchr/testify/assert"
)

func TestUsecase_ListChannels(t *testing.T) {
	f := newFixture(t)

	got := f.uc.ListChannels(context.Background())

	assert.Equal(t, []entity.Channel{
		{Name: "brevo", Kind: "httpApi", Default: true},
		{Name: "broken", Kind: "unsupported"},
		{Name: "relay", Kind: "smtpRelay"},
	}, got)
}
