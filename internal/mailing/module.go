package mailing

import (
	"context"
	"errors"

	"github.com/shandysiswandi/mailbite/internal/mailing/inbound"
	"github.com/shandysiswandi/mailbite/internal/mailing/outbound/attachment"
	"github.com/shandysiswandi/mailbite/internal/mailing/outbound/dispatch"
	"github.com/shandysiswandi/mailbite/internal/mailing/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/storage"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
)

type Dependency struct {
	Ctx          context.Context
	Config       config.Config
	Instrument   instrument.Instrumentation
	UUID         uid.StringID
	Clock        clock.Clocker
	Validator    validator.Validator
	Router       *router.Router
	Dispatcher   *mail.Dispatcher
	Storage      storage.Storage
	Idempotency  idempotency.Idempotency
	Consumer     messaging.Consumer
	Goroutine    *goroutine.Manager
	HealthChecks map[string]inbound.HealthCheck
}

// ErrDispatcherRequired is returned by New without a mail dispatcher.
var ErrDispatcherRequired = errors.New("mailing: dispatcher is required")

func New(dep Dependency) error {
	if dep.Dispatcher == nil {
		return ErrDispatcherRequired
	}

	ucDep := usecase.Dependency{
		RepoDispatch: dispatch.New(dep.Dispatcher, dep.Instrument),
		Idempotency:  dep.Idempotency,
		Validator:    dep.Validator,
		Clock:        dep.Clock,
		Config:       dep.Config,
		Instrument:   dep.Instrument,
	}
	if dep.Storage != nil {
		maxBytes := int64(dep.Config.GetInt("modules.mailing.attachment_max_bytes"))
		ucDep.RepoAttachment = attachment.New(dep.Storage, maxBytes, dep.Instrument)
	}

	uc := usecase.NewMailing(ucDep)

	if dep.Router != nil {
		inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.HealthChecks)
	}
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Consumer, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
