package middleware

import (
	"net/http"
	"time"

	"github.com/regit-contracts/regit/internal/observability"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request. Server errors log at error level,
// client errors at warn, everything else at debug.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)),
			}
			log := observability.WithRequestID(r.Context(), logger)
			switch {
			case rec.status >= http.StatusInternalServerError:
				log.Error("request completed", fields...)
			case rec.status >= http.StatusBadRequest:
				log.Warn("request completed", fields...)
			default:
				log.Debug("request completed", fields...)
			}
		})
	}
}
