package instrument

import (
	"context"

	"github.com/google/uuid"
)

type correlationKey struct{}

// CorrelationHeader carries the correlation id over HTTP.
const CorrelationHeader = "X-Correlation-ID"

// SetCorrelationID stores id on ctx. An empty id is replaced by a fresh uuid.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// GetCorrelationID returns the id stored by SetCorrelationID, or "".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
