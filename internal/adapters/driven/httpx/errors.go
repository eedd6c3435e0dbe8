package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// maxBodySnippet bounds the response body quoted in errors.
const maxBodySnippet = 300

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// Classify maps a response status onto the domain error model.
// It returns nil for 2xx.
func Classify(provider string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	statusErr := &StatusError{Provider: provider, Code: code, Body: snippet(body)}
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, statusErr)
	case code == http.StatusRequestTimeout, code >= 500:
		return domain.Transient(statusErr)
	default:
		return statusErr
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Unparseable or past values give 0.
func ParseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return max(0, time.Duration(secs)*time.Second)
	}
	if at, err := http.ParseTime(header); err == nil {
		return max(0, at.Sub(now))
	}
	return 0
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if r := []rune(s); len(r) > maxBodySnippet {
		return string(r[:maxBodySnippet]) + "..."
	}
	return s
}
