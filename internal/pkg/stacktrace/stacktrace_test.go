package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/mailbite/internal/pkg/goroutine.(*Manager).Go.func1.1()
	/src/mailbite/internal/pkg/goroutine/goroutine.go:61 +0x9f
github.com/shandysiswandi/mailbite/internal/mailing/inbound.(*consumer).handle(...)
	/src/mailbite/internal/mailing/inbound/mq.go:40
`)

	assert.Equal(t, []string{
		"internal/pkg/goroutine/goroutine.go:61",
		"internal/mailing/inbound/mq.go:40",
	}, InternalPaths(stack))
	assert.Empty(t, InternalPaths(nil))
}
