package inbound

import (
	"context"

	"github.com/shandysiswandi/mailbite/internal/mailing/entity"
	"github.com/shandysiswandi/mailbite/internal/mailing/usecase"
)

type uc interface {
	SendMail(ctx context.Context, in usecase.SendMailInput) (usecase.SendMailOutput, error)
	ListChannels(ctx context.Context) []entity.Channel
}
