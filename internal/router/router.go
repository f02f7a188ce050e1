package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/otp"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/photo"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) statusCode() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", httpx.RequestID(r.Context()),
				"status", lrw.statusCode(),
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers and infrastructure the route table is built from.
type Deps struct {
	Logger   *zap.SugaredLogger
	Gate     *auth.Gate
	Auth     *auth.Handler
	OTP      *otp.Handler
	Staff    *staff.Handler
	Registry *prometheus.Registry
	// PhotoDir is served under photo.PublicPrefix when photos live on
	// local disk. Empty disables the route.
	PhotoDir string
	// Ready reports backing store health for /health. Optional.
	Ready func(ctx context.Context) error
}

// noDirListing hides directory indexes of a file server.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	logger := d.Logger

	authed := func(h http.HandlerFunc) http.Handler {
		return d.Gate.Authenticate(h)
	}
	adminOnly := auth.RequireRole(entity.RoleAdmin, logger)
	admin := func(h http.HandlerFunc) http.Handler {
		return d.Gate.Authenticate(adminOnly(h))
	}

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}
	if d.PhotoDir != "" {
		mux.Handle("GET "+photo.PublicPrefix, http.StripPrefix(photo.PublicPrefix, noDirListing(http.FileServer(http.Dir(d.PhotoDir)))))
	}

	// auth
	mux.HandleFunc("POST /api/auth/login", d.Auth.Login)
	mux.HandleFunc("POST /api/auth/request-otp", d.OTP.RequestCode)
	mux.HandleFunc("POST /api/auth/verify-otp-change-password", d.OTP.Reset)

	// employees
	mux.Handle("POST /api/employees", admin(d.Staff.Create))
	mux.Handle("GET /api/employees/all", admin(d.Staff.List))
	mux.Handle("GET /api/employees/stats/overview", admin(d.Staff.Stats))
	mux.Handle("GET /api/employees/search/query", admin(d.Staff.Search))
	mux.Handle("GET /api/employees/{id}", admin(d.Staff.Get))
	mux.Handle("PUT /api/employees/{id}", admin(d.Staff.Update))
	mux.Handle("DELETE /api/employees/{id}", admin(d.Staff.Delete))
	mux.Handle("PUT /api/employees/{id}/reset-password", admin(d.Staff.ResetPassword))

	// profile
	mux.Handle("GET /api/profile", authed(d.Staff.GetProfile))
	mux.Handle("PUT /api/profile", authed(d.Staff.UpdateProfile))
	mux.Handle("POST /api/profile/upload-photo", authed(d.Staff.UploadOwnPhoto))
	mux.Handle("DELETE /api/profile/delete-photo", authed(d.Staff.DeleteOwnPhoto))
	mux.Handle("GET /api/profile/profiles", admin(d.Staff.List))
	mux.Handle("GET /api/profile/employee/{id}", admin(d.Staff.Get))
	mux.Handle("PUT /api/profile/employee/{id}", admin(d.Staff.UpdateEmployeeProfile))
	mux.Handle("POST /api/profile/employee/{id}/upload-photo", admin(d.Staff.UploadEmployeePhoto))
	mux.Handle("DELETE /api/profile/employee/{id}/delete-photo", admin(d.Staff.DeleteEmployeePhoto))

	// the metrics middleware must see the request the mux routes so it can
	// read the matched pattern
	var handler http.Handler = mux
	if d.Registry != nil {
		handler = NewHTTPMetrics(d.Registry).Middleware()(handler)
	}
	handler = SecurityHeadersMiddleware()(handler)
	handler = RecoverMiddleware(logger)(handler)
	handler = LoggingMiddleware(logger)(handler)
	return RequestIDMiddleware()(handler)
}
