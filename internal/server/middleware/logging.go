package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Logger returns an HTTP middleware that logs every request using structured
// logging, tagged with the request ID and, when authenticated, the user.
// Health probes are logged at debug level.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			slot := &logSlot{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logSlotKey, slot)))

			duration := time.Since(start)
			level := slog.LevelInfo
			switch {
			case ww.status >= 500:
				level = slog.LevelError
			case ww.status >= 400:
				level = slog.LevelWarn
			case isProbe(r.URL.Path):
				level = slog.LevelDebug
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration_ms", float64(duration.Microseconds()) / 1000.0,
				"bytes", ww.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if slot.user != "" {
				attrs = append(attrs, "user", slot.user)
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// logSlot lets middleware further down the chain report request attributes
// back to Logger.
type logSlot struct {
	user string
}

const logSlotKey contextKey = "log_slot"

// noteUser records the authenticated user for the request log line.
func noteUser(ctx context.Context, userID string) {
	if s, ok := ctx.Value(logSlotKey).(*logSlot); ok {
		s.user = userID
	}
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// bytes written for logging purposes.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter, required for http.Flusher
// and other interface assertions through middleware chains.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
