package inbound

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/shared/event"
)

// RegisterMQConsumer starts the mail.send.requested consumer on routine when
// modules.mailing.consumer.enabled is set. It returns false when nothing was started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) bool {
	if consumer == nil || !cfg.GetBool("modules.mailing.consumer.enabled") {
		return false
	}

	handler := &MQHandler{uc: uc, uuid: uuid, ins: ins}
	destination := lo.CoalesceOrEmpty(cfg.GetString("modules.mailing.consumer.destination"), event.MailSendRequestedDestination)

	return routine.Go(ctx, func(pCtx context.Context) error {
		slog.InfoContext(pCtx, "running job for handling consumer", "destination", destination)
		return consumer.Consume(pCtx, destination, handler.MailSendRequested)
	})
}
