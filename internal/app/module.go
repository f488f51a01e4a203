package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/shandysiswandi/mailbite/internal/mailing"
	"github.com/shandysiswandi/mailbite/internal/mailing/inbound"
)

func (a *App) initModules() {
	checks := map[string]inbound.HealthCheck{}
	if a.cacheConn != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.cacheConn.Ping(ctx).Err()
		}
	}

	if err := mailing.New(mailing.Dependency{
		Ctx:          a.ctx,
		Config:       a.config,
		Instrument:   a.ins,
		UUID:         a.uuid,
		Clock:        a.clock,
		Validator:    a.validator,
		Router:       a.router,
		Dispatcher:   a.dispatcher,
		Storage:      a.storage,
		Idempotency:  a.idemp,
		Consumer:     a.consumer,
		Goroutine:    a.goroutine,
		HealthChecks: checks,
	}); err != nil {
		slog.Error("failed to init module mailing", "error", err)
		os.Exit(1)
	}
}
