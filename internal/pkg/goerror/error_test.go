package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		err        error
		wantType   Type
		wantCode   Code
		wantStatus int
	}{
		{"Server", NewServer(cause), TypeServer, CodeInternal, http.StatusInternalServerError},
		{"Config", NewConfig(cause), TypeConfig, CodeUnprocessable, http.StatusUnprocessableEntity},
		{"Unsupported", NewUnsupported(cause), TypeUnsupported, CodeUnprocessable, http.StatusUnprocessableEntity},
		{"Transport", NewTransport(cause), TypeTransport, CodeBadGateway, http.StatusBadGateway},
		{"Business", NewBusiness("duplicate", CodeConflict), TypeBusiness, CodeConflict, http.StatusConflict},
		{"InvalidFormat", NewInvalidFormat(), TypeValidation, CodeInvalidFormat, http.StatusBadRequest},
		{"Unauthorized", NewUnauthorized("no token"), TypeBusiness, CodeUnauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gerr *Error
			assert.ErrorAs(t, tt.err, &gerr)
			assert.Equal(t, tt.wantType, gerr.Type())
			assert.Equal(t, tt.wantCode, gerr.Code())
			assert.Equal(t, tt.wantStatus, gerr.StatusCode())
			assert.Equal(t, tt.wantType, TypeOf(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewTransport(cause)

	assert.Equal(t, "dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Mail provider failed to accept the message", err.(*Error).Msg())
	assert.Contains(t, err.(*Error).String(), "ERROR_TYPE_TRANSPORT")
	assert.Equal(t, "no token", NewUnauthorized("no token").Error())
}

func TestNewInvalidInput(t *testing.T) {
	t.Run("Fields", func(t *testing.T) {
		err := NewInvalidInput(nil, "to", "must be a valid mailbox", "subject", "is required")

		var gerr *Error
		assert.ErrorAs(t, err, &gerr)
		assert.Equal(t, map[string]string{"to": "must be a valid mailbox", "subject": "is required"}, gerr.Fields())
		assert.Equal(t, http.StatusUnprocessableEntity, gerr.StatusCode())
	})

	t.Run("OddPairs", func(t *testing.T) {
		err := NewInvalidInput(nil, "to")
		assert.Equal(t, CodeInvalidFormat, err.(*Error).Code())
	})

	t.Run("Wrapped", func(t *testing.T) {
		cause := errors.New("bad")
		assert.ErrorIs(t, NewInvalidInput(cause), cause)
	})
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, TypeServer, TypeOf(errors.New("x")))
	assert.Equal(t, "ERROR_TYPE_UNKNOWN", Type(99).String())
	assert.Equal(t, "ERROR_CODE_INTERNAL", Code(99).String())
}
