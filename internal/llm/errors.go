package llm

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	// ErrExhausted is returned when every model and credential has been tried.
	ErrExhausted = errors.New("all models and credentials exhausted")
	// ErrNoCredentials is returned when a flow that needs the hosted model
	// has no credentials configured.
	ErrNoCredentials = errors.New("no LLM credentials configured")
)

var transientMarkers = []string{"429", "503", "quota", "overloaded"}

// IsTransient reports whether err signals a rate limit or overload that is
// worth retrying with another credential. A per-call deadline is not
// transient: a hung model moves the rotation on to the next model.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusServiceUnavailable {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// MaskKey shortens a credential for logging.
func MaskKey(key string) string {
	if key == "" {
		return "(none)"
	}
	if len(key) <= 5 {
		return "..."
	}
	return key[:5] + "..."
}
