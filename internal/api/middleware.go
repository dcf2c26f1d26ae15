package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// observe records request metrics under the route template and logs failed
// and slow requests.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r)
		start := time.Now()

		var done func(int)
		if s.metrics != nil {
			done = s.metrics.HTTPRequestStarted(route, r.Method)
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		if done != nil {
			done(rw.status)
		}

		if rw.status >= http.StatusInternalServerError {
			s.log.Error("HTTP request failed",
				zap.String("route", route),
				zap.String("method", r.Method),
				zap.Int("status", rw.status),
				zap.Duration("duration", time.Since(start)),
			)
		} else {
			s.log.Debug("HTTP request",
				zap.String("route", route),
				zap.String("method", r.Method),
				zap.Int("status", rw.status),
				zap.Duration("duration", time.Since(start)),
			)
		}
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("Panic in HTTP handler",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, errors.New(errors.ErrCodeUnknown, fmt.Sprintf("internal error: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}

	return "unmatched"
}

// statusRecorder keeps the status code and still lets streaming handlers
// flush and hijack the connection.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true

	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeUpgradeFailed, "connection does not support hijacking")
	}

	w.status = http.StatusSwitchingProtocols

	return h.Hijack()
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
