package entity

import (
	"strings"

	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

// OutcomeSent labels a dispatch that the provider accepted.
const OutcomeSent = "sent"

// Outcome labels a dispatch result for metrics: "sent", or the error type
// such as "transport" or "config".
func Outcome(err error) string {
	if err == nil {
		return OutcomeSent
	}
	return strings.ToLower(strings.TrimPrefix(goerror.TypeOf(err).String(), "ERROR_TYPE_"))
}
