package usecase

import (
	"context"

	"github.com/shandysiswandi/mailbite/internal/mailing/entity"
)

// ListChannels returns the configured channels in name order. Credentials never leave the dispatcher.
func (s *Usecase) ListChannels(ctx context.Context) []entity.Channel {
	_, span := s.startSpan(ctx, "ListChannels")
	defer span.End()

	cfg := s.repoDispatch.Config()

	out := make([]entity.Channel, 0, len(cfg.Channels))
	for _, name := range cfg.Names() {
		kind := entity.KindUnsupported
		if ch := cfg.Channels[name]; ch != nil {
			kind = string(ch.Kind())
		}
		out = append(out, entity.Channel{
			Name:    name,
			Kind:    kind,
			Default: name == cfg.DefaultChannel,
		})
	}

	return out
}
