package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"playground-mockserver/internal/models"
)

type routeLabelKey struct{}

// routeLabel is filled in by routeLabelMiddleware once mux has matched a
// route, so the outer observer can label metrics by path template.
type routeLabel struct {
	template string
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func routeLabelMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if label, ok := r.Context().Value(routeLabelKey{}).(*routeLabel); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					label.template = tmpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs every request and records it in the metrics recorder.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		done := s.metrics.Begin()

		label := &routeLabel{template: "unmatched"}
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), routeLabelKey{}, label)))

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		done(r.Method, label.template, status)
		s.logger.Request(r.Method, r.URL.Path, status, time.Since(start).String())
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error(fmt.Sprint(rec), "Recovered from handler panic")
				writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// trimTrailingSlash lets "/mock/users/" reach the "/mock/users" route.
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r2.URL.RawPath != "" {
				r2.URL.RawPath = strings.TrimRight(r.URL.RawPath, "/")
			}
			if r2.URL.Path == "" {
				r2.URL.Path = "/"
			}
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}
