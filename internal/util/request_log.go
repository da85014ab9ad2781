package util

import (
	"net/http"
	"time"
)

// WithRequestLog emits a structured debug log for each outgoing request.
// Wrap it inside WithRequestID so the entry carries request_id.
func WithRequestLog(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		logger := LoggerFromContext(r.Context())
		if err != nil {
			logger.Warn("api_request_failed",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
				"err", err,
			)
			return nil, err
		}
		logger.Debug("api_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, nil
	})
}
