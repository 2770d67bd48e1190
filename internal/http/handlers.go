package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finpocket/internal/app"
	"finpocket/internal/core"
	"finpocket/internal/log"
)

// handleIndex renders the caller's current page, starting a session on the
// login page when there is none. Notices are consumed by the render, so a
// reload does not show them again.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var view app.View
	s.withApp(w, r, true, func(a *app.App) {
		view = a.View()
		a.ClearNotices()
	})

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "base.html", view); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to render page", log.NewFields().
			WithComponent(log.ComponentTemplate).
			WithOperation(log.OpRender).
			WithError(err, log.ErrorTypeInternal).ToSlice()...)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// Form handlers read the fields named after the ledger parameters, hand
// them to the model and redirect back to the page. The outcome is carried
// by the model's notices, so errors are not written to the response.

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	f := app.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	s.submit(w, r, true, func(ctx context.Context, a *app.App) error { return a.SubmitLogin(ctx, f) })
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	f := app.AccountForm{
		Name:    r.PostFormValue("account_name"),
		Type:    core.AccountType(r.PostFormValue("account_type")),
		Balance: r.PostFormValue("balance"),
	}
	s.submit(w, r, false, func(ctx context.Context, a *app.App) error { return a.SubmitAccount(ctx, f) })
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	f := app.ExpenseForm{
		Category:    r.PostFormValue("category"),
		Amount:      r.PostFormValue("amount"),
		AccountName: r.PostFormValue("account_name"),
		Note:        r.PostFormValue("note"),
	}
	s.submit(w, r, false, func(ctx context.Context, a *app.App) error { return a.SubmitExpense(ctx, f) })
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	f := app.BalanceForm{
		AccountName: r.PostFormValue("account_name"),
		NewBalance:  r.PostFormValue("new_balance"),
	}
	s.submit(w, r, false, func(ctx context.Context, a *app.App) error { return a.SubmitBalance(ctx, f) })
}

func (s *Server) handleAddPocket(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	f := app.PocketForm{
		PersonName: r.PostFormValue("person_name"),
		Type:       r.PostFormValue("type"),
		Amount:     r.PostFormValue("amount"),
		Date:       r.PostFormValue("date"),
		Purpose:    r.PostFormValue("purpose"),
	}
	s.submit(w, r, false, func(ctx context.Context, a *app.App) error { return a.SubmitPocket(ctx, f) })
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	page, err := app.ParsePage(r.PostFormValue("page"))
	if err != nil {
		http.Error(w, "Unknown page", http.StatusBadRequest)
		return
	}
	var navErr error
	s.withApp(w, r, false, func(a *app.App) { navErr = a.Navigate(page) })
	if navErr != nil {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Navigation refused",
			log.FieldOperation, log.OpNavigate,
			log.FieldPage, page.String(),
			log.FieldError, navErr.Error())
	}
	redirectHome(w, r)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.withApp(w, r, false, func(a *app.App) { _ = a.Back() })
	redirectHome(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.withApp(w, r, false, func(a *app.App) { a.Logout(r.Context()) })
	redirectHome(w, r)
}

// submit runs one form action under the session lock. Only login may start
// a session. Submissions made without a session or signed-in user are not
// counted; they only land back on the login page.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, create bool, fn func(context.Context, *app.App) error) {
	var err error
	ran := s.withApp(w, r, create, func(a *app.App) { err = fn(r.Context(), a) })
	if ran && !errors.Is(err, app.ErrNotAuthenticated) {
		s.countSubmission(err)
	}
	redirectHome(w, r)
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.startedAt).String(),
	})
}

// handleReady reports whether templates are loaded and the optional
// dependency check passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["ledger"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["ledger"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["ledger"] = "ok"
		}
	}

	limiter := map[string]interface{}{"status": "disabled"}
	if s.rateLimiter != nil {
		limiter = map[string]interface{}{
			"active_clients": s.rateLimiter.ActiveClients(),
			"status":         "ok",
		}
	}
	checks["rate_limiter"] = limiter

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	var rateLimitHits, activeClients int64
	if s.rateLimiter != nil {
		m := s.rateLimiter.GetMetrics()
		rateLimitHits, activeClients = m.TotalHits, m.ClientCount
	}
	submissions := atomic.LoadInt64(&s.appMetrics.submissions)
	failed := atomic.LoadInt64(&s.appMetrics.failedSubmissions)
	uptime := time.Since(s.appMetrics.startedAt)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP ledger_submissions_total Form submissions sent to the ledger\n")
	fmt.Fprintf(w, "# TYPE ledger_submissions_total counter\n")
	fmt.Fprintf(w, "ledger_submissions_total %d\n\n", submissions)

	fmt.Fprintf(w, "# HELP ledger_submission_failures_total Form submissions that did not succeed\n")
	fmt.Fprintf(w, "# TYPE ledger_submission_failures_total counter\n")
	fmt.Fprintf(w, "ledger_submission_failures_total %d\n\n", failed)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP blocked_requests_total Requests refused by the security detector\n")
	fmt.Fprintf(w, "# TYPE blocked_requests_total counter\n")
	fmt.Fprintf(w, "blocked_requests_total %d\n\n", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", activeClients)

	fmt.Fprintf(w, "# HELP active_sessions Browser sessions currently held\n")
	fmt.Fprintf(w, "# TYPE active_sessions gauge\n")
	fmt.Fprintf(w, "active_sessions %d\n\n", s.sessions.Len())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
