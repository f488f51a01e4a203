package attachment

import (
	"context"
	"path"

	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxBytes caps a single fetched attachment.
const DefaultMaxBytes int64 = 10 << 20

type Storage struct {
	store    storage.Storage
	maxBytes int64
	ins      instrument.Instrumentation
}

func New(store storage.Storage, maxBytes int64, ins instrument.Instrumentation) *Storage {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Storage{store: store, maxBytes: maxBytes, ins: ins}
}

func (s *Storage) Fetch(ctx context.Context, ref string) (mail.Attachment, error) {
	ctx, span := s.ins.Tracer("mailing.outbound.attachment").Start(ctx, "Fetch")
	defer span.End()

	bucket, key, err := storage.ParseRef(ref)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return mail.Attachment{}, err
	}
	span.SetAttributes(attribute.String("storage.bucket", bucket), attribute.String("storage.key", key))

	data, info, err := storage.ReadAll(ctx, s.store, bucket, key, s.maxBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return mail.Attachment{}, err
	}

	return mail.Attachment{
		Filename:    path.Base(key),
		ContentType: info.ContentType,
		Content:     data,
	}, nil
}
