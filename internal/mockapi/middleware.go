package mockapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/wastewatch/wastewatch/internal/platform/httpx"
)

const (
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

func (s *Server) middlewareStack() []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
		SSLRedirect:        s.cfg.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !s.cfg.Production,
	})

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(s.cfg.RequestTimeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					s.logger.Warn("secure headers blocked request", slog.Any("error", err))
					httpx.Detail(w, http.StatusBadRequest, "Bad request.")
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		s.requestLog,
		s.csrf,
	}
	if s.metrics != nil {
		middlewares = append(middlewares, s.metrics.Middleware)
	}
	return middlewares
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

// csrf hands out a csrftoken cookie and, on unsafe methods, requires the
// X-CSRFToken header to echo it whenever the cookie is presented. Login and
// register are exempt.
func (s *Server) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    strings.ReplaceAll(uuid.NewString(), "-", ""),
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if s.csrfExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get(csrfHeaderName)
		if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
			s.logger.Warn("csrf validation failed", slog.String("path", r.URL.Path))
			httpx.Detail(w, http.StatusForbidden, "CSRF Failed: CSRF token missing or incorrect.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfExempt(path string) bool {
	return path == s.cfg.Prefix+"/user/login/" || path == s.cfg.Prefix+"/user/register/"
}

func (s *Server) loginLimiter() func(http.Handler) http.Handler {
	if s.cfg.LoginRate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(s.cfg.LoginRate, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Detail(w, http.StatusTooManyRequests, "Request was throttled.")
		}),
	)
}
