package api

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
)

var errPanic = errors.New("handler panicked")

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrument records request counts and latency by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func recoverPanics(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.Error("handler panic", map[string]interface{}{
					"path":  r.URL.Path,
					"panic": v,
					"stack": string(debug.Stack()),
				})
				writeJSON(w, log, http.StatusInternalServerError, errorResponse{
					Error: apperrors.NewInternalError(errPanic),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
