package inbound

import (
	"context"

	"github.com/shandysiswandi/mailbite/internal/pkg/router"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

func RegisterHTTPEndpoint(r *router.Router, uc uc, checks map[string]HealthCheck) {
	end := &HTTPEndpoint{uc: uc, checks: checks}

	r.GET("/health", end.Health)

	r.POST("/api/v1/mail/send", end.SendMail)
	r.GET("/api/v1/mail/channels", end.ListChannels)
}
