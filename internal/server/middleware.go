package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/metrics"
)

type middleware func(http.Handler) http.Handler

// chain composes middlewares left to right: chain(m1, m2)(h) == m1(m2(h)).
func chain(middlewares ...middleware) middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// recoverPanics turns handler panics into 500 responses.
func recoverPanics(logger log.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Errorf("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// logRequests logs every served request with its response code and latency.
func logRequests(logger log.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			reqLogger := logger.WithValues(log.Kv{
				"method":   r.Method,
				"path":     r.URL.Path,
				"code":     rw.code,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			})
			if rw.code >= http.StatusInternalServerError {
				reqLogger.Warningf("HTTP request failed")
				return
			}
			reqLogger.Debugf("HTTP request served")
		})
	}
}

// measureRequests records the request on the metrics recorder under the
// route pattern, not the raw path, to keep label cardinality bounded.
func measureRequests(rec metrics.Recorder, pattern string) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			rec.ObserveHTTPRequest(pattern, r.Method, rw.code, time.Since(start))
		})
	}
}

// statusRecorder captures the response code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
