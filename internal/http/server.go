// Package http serves the web front-end: one HTML page rendered from a
// per-browser application model plus form posts that drive it.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finpocket/internal/app"
	"finpocket/internal/log"
	"finpocket/internal/middleware/ratelimit"
	"finpocket/internal/middleware/security"
	"finpocket/internal/middleware/trace"
	appweb "finpocket/web"
)

// Options configures a Server.
type Options struct {
	Addr string
	// RateLimitPerMinute caps form posts per client. Zero disables the limit.
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready reports whether an optional dependency is usable. It backs the
	// "ledger" check of /readyz; nil always passes.
	Ready func(context.Context) error
}

type Server struct {
	http.Server

	sessions  *sessionStore
	templates *template.Template
	logger    *log.Logger
	ready     func(context.Context) error

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	submissions       int64
	failedSubmissions int64
	startedAt         time.Time
}

var templateFuncs = template.FuncMap{
	"isError": func(n app.Notice) bool { return n.IsError() },
}

// NewServer parses the embedded templates and wires routes and middleware.
// newApp builds the model of each new browser session.
func NewServer(newApp func() *app.App, opts Options) (*Server, error) {
	if newApp == nil {
		return nil, fmt.Errorf("new server: nil app factory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		sessions:         newSessionStore(newApp),
		templates:        t,
		logger:           logger.WithComponent(log.ComponentHTTP),
		ready:            opts.Ready,
		securityDetector: security.NewDetector(logger.WithComponent(log.ComponentSecurity)),
		appMetrics:       appMetrics{startedAt: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger.WithComponent(log.ComponentTrace), s.securityDetector.ExtractClientIP)
	if opts.RateLimitPerMinute > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", security.NoStore(http.HandlerFunc(s.handleIndex)))
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /accounts", s.handleAddAccount)
	mux.HandleFunc("POST /expenses", s.handleAddExpense)
	mux.HandleFunc("POST /balance", s.handleAdjustBalance)
	mux.HandleFunc("POST /pockets", s.handleAddPocket)
	mux.HandleFunc("POST /navigate", s.handleNavigate)
	mux.HandleFunc("POST /back", s.handleBack)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	var handler http.Handler = mux
	if s.rateLimiter != nil {
		handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.rateLimited, http.MethodPost)(handler)
	}
	handler = s.securityDetector.SameOriginMiddleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.Middleware(s.logger, trace.GetRequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Shutdown stops the rate limiter and drains the HTTP server. Only the
// first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countSubmission(err error) {
	atomic.AddInt64(&s.appMetrics.submissions, 1)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.failedSubmissions, 1)
	}
}
