// Package app is the application model shared by the web and terminal
// front-ends: the session, the current page, one draft per page and the
// notices produced by the last user action.
//
// Every user action performs at most one ledger write followed by at most
// one account refresh, awaited in order. App is not safe for concurrent
// use; front-ends that serve requests in parallel must serialize access.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finpocket/internal/core"
	"finpocket/internal/ledger"
	"finpocket/internal/log"
	"finpocket/internal/session"
)

var (
	ErrMissingFields    = errors.New("required fields missing")
	ErrNotAuthenticated = session.ErrNotAuthenticated
)

// ActivityPublisher announces accepted writes. Failures are logged and
// never change what the user sees.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, a core.Activity) error
}

type App struct {
	ledger    ledger.Service
	session   *session.Session
	router    *Router
	drafts    Drafts
	notices   []Notice
	publisher ActivityPublisher
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*App)

func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPublisher enables activity announcements. A nil publisher is ignored.
func WithPublisher(p ActivityPublisher) Option {
	return func(a *App) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithClock replaces the time source stamped on activities.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an unauthenticated application on the login page.
func New(l ledger.Service, opts ...Option) *App {
	a := &App{
		ledger: l,
		router: NewRouter(),
		drafts: NewDrafts(),
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.session = session.New(l, a.logger)
	a.logger = a.logger.WithComponent(log.ComponentApp)
	return a
}

func (a *App) Page() Page { return a.router.Current() }

func (a *App) Session() *session.Session { return a.session }

func (a *App) Drafts() Drafts { return a.drafts }

// Notices returns the notices of the last action.
func (a *App) Notices() []Notice {
	return append([]Notice(nil), a.notices...)
}

// ClearNotices drops pending notices once they have been shown.
func (a *App) ClearNotices() {
	a.notices = nil
}

// SubmitLogin authenticates with f. On success the login draft is cleared
// and the dashboard is shown, even when the follow-up account fetch fails.
func (a *App) SubmitLogin(ctx context.Context, f LoginForm) error {
	a.begin()
	a.drafts.Login = f
	if !f.Complete() {
		a.notify(NoticeError, MsgMissingFields)
		return ErrMissingFields
	}

	err := a.session.Login(ctx, f.Username, f.Password)
	if err != nil && !errors.Is(err, session.ErrAccountsUnavailable) {
		a.notify(NoticeError, failureText(ledger.ActionLogin, err))
		return err
	}

	a.drafts.Login = LoginForm{}
	a.router.Back()
	if err != nil {
		a.notify(NoticeError, MsgFetchFailed)
		return err
	}
	return nil
}

func (a *App) SubmitAccount(ctx context.Context, f AccountForm) error {
	a.drafts.Account = f
	return a.submit(ctx, submission{
		action:      ledger.ActionAddAccount,
		complete:    f.Complete(),
		accountName: f.Name,
		refetch:     true,
		call: func(ctx context.Context, uid core.ID) error {
			return a.ledger.AddAccount(ctx, uid, f.account())
		},
		reset: func() { a.drafts.Account = NewAccountForm() },
	})
}

func (a *App) SubmitExpense(ctx context.Context, f ExpenseForm) error {
	a.drafts.Expense = f
	return a.submit(ctx, submission{
		action:      ledger.ActionAddExpense,
		complete:    f.Complete(),
		accountName: f.AccountName,
		refetch:     true,
		call: func(ctx context.Context, uid core.ID) error {
			return a.ledger.AddExpense(ctx, uid, f.expense())
		},
		reset: func() { a.drafts.Expense = ExpenseForm{} },
	})
}

func (a *App) SubmitBalance(ctx context.Context, f BalanceForm) error {
	a.drafts.Balance = f
	return a.submit(ctx, submission{
		action:      ledger.ActionAdjustBalance,
		complete:    f.Complete(),
		accountName: f.AccountName,
		refetch:     true,
		call: func(ctx context.Context, uid core.ID) error {
			return a.ledger.AdjustBalance(ctx, uid, f.adjustment())
		},
		reset: func() { a.drafts.Balance = BalanceForm{} },
	})
}

// SubmitPocket records a pocket entry. Pocket entries do not move account
// balances, so the account list is not refreshed.
func (a *App) SubmitPocket(ctx context.Context, f PocketForm) error {
	a.drafts.Pocket = f
	return a.submit(ctx, submission{
		action:   ledger.ActionAddPocket,
		complete: f.Complete(),
		call: func(ctx context.Context, uid core.ID) error {
			return a.ledger.AddPocket(ctx, uid, f.entry())
		},
		reset: func() { a.drafts.Pocket = PocketForm{} },
	})
}

type submission struct {
	action      ledger.Action
	complete    bool
	accountName string
	refetch     bool
	call        func(ctx context.Context, uid core.ID) error
	reset       func()
}

func (a *App) submit(ctx context.Context, s submission) error {
	a.begin()
	if !a.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !s.complete {
		a.notify(NoticeError, MsgMissingFields)
		return ErrMissingFields
	}

	uid := a.session.UserID()
	if err := s.call(ctx, uid); err != nil {
		errorType := log.ErrorTypeBusiness
		if ledger.IsConnectivity(err) {
			errorType = log.ErrorTypeNetwork
		}
		a.logger.WarnContext(ctx, "Submission failed", log.NewFields().
			WithOperation(log.OpSubmit).
			WithAction(s.action.String()).
			WithUser(uid.String()).
			WithError(err, errorType).ToSlice()...)
		a.notify(NoticeError, failureText(s.action, err))
		return fmt.Errorf("%s: %w", s.action, err)
	}

	a.logger.InfoContext(ctx, "Submission accepted",
		log.FieldOperation, log.OpSubmit,
		log.FieldAction, s.action.String(),
		log.FieldUserID, uid.String())
	a.notify(NoticeSuccess, actionMessages[s.action].success)
	s.reset()

	var err error
	if s.refetch {
		if err = a.session.FetchAccounts(ctx); err != nil {
			a.notify(NoticeError, MsgFetchFailed)
			err = fmt.Errorf("%w: %w", session.ErrAccountsUnavailable, err)
		}
	}
	// Announced only once the refreshed accounts are in place.
	a.publish(ctx, core.Activity{
		Action:      s.action.String(),
		UserID:      uid,
		AccountName: s.accountName,
		At:          a.now(),
	})
	a.router.Back()
	return err
}

func (a *App) publish(ctx context.Context, act core.Activity) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishActivity(ctx, act); err != nil {
		a.logger.ErrorContext(ctx, "Failed to publish activity", log.NewFields().
			WithOperation(log.OpPublish).
			WithAction(act.Action).
			WithUser(act.UserID.String()).
			WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}

// Navigate moves to p. Only the login page is reachable without a user.
func (a *App) Navigate(p Page) error {
	a.begin()
	if !p.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownPage, string(p))
	}
	if p != PageLogin && !a.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return a.router.Go(p)
}

// Back returns to the dashboard.
func (a *App) Back() error {
	a.begin()
	if !a.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	a.router.Back()
	return nil
}

// Logout forgets the session and every draft and shows the login page.
// The ledger is not contacted.
func (a *App) Logout(ctx context.Context) {
	a.begin()
	uid := a.session.UserID()
	a.session.Logout()
	a.drafts = NewDrafts()
	a.router.Reset()
	a.logger.InfoContext(ctx, "User logged out",
		log.FieldOperation, log.OpLogout,
		log.FieldUserID, uid.String())
}

// begin starts a new user action; notices from the previous one are dropped.
func (a *App) begin() {
	a.notices = nil
}

func (a *App) notify(kind NoticeKind, text string) {
	a.notices = append(a.notices, Notice{Kind: kind, Text: text})
}
