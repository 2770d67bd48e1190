// Package session holds who is logged in and the accounts last fetched for
// them. The account list is the only ledger data kept client-side.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finpocket/internal/core"
	"finpocket/internal/ledger"
	"finpocket/internal/log"
)

var (
	// ErrNotAuthenticated is returned by operations that need a user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAccountsUnavailable wraps the fetch error when a login succeeded
	// but the account list could not be loaded. The user stays logged in.
	ErrAccountsUnavailable = errors.New("accounts unavailable")
)

// Ledger is the part of the ledger a session talks to.
type Ledger interface {
	ledger.Authenticator
	ledger.AccountReader
}

// Session is not safe for concurrent use.
type Session struct {
	ledger   Ledger
	logger   *log.Logger
	user     *core.User
	accounts []core.Account
}

func New(l Ledger, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Discard()
	}
	return &Session{
		ledger:   l,
		logger:   logger.WithComponent(log.ComponentSession),
		accounts: []core.Account{},
	}
}

// Login trims both credentials and authenticates. On success the identity
// is adopted and accounts are fetched once; if that fetch fails the error
// wraps ErrAccountsUnavailable and the session remains authenticated. On
// failure the session is left unauthenticated.
func (s *Session) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	user, err := s.ledger.Login(ctx, username, password)
	if err != nil {
		errorType := log.ErrorTypeAuth
		if ledger.IsConnectivity(err) {
			errorType = log.ErrorTypeNetwork
		}
		s.logger.WarnContext(ctx, "Login failed", log.NewFields().
			WithOperation(log.OpLogin).
			WithError(err, errorType).ToSlice()...)
		return fmt.Errorf("login: %w", err)
	}

	s.user = &user
	s.accounts = []core.Account{}
	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID.String())

	if err := s.FetchAccounts(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAccountsUnavailable, err)
	}
	return nil
}

// FetchAccounts replaces the account list with the ledger's current one.
// The previous list is kept when the fetch fails.
func (s *Session) FetchAccounts(ctx context.Context) error {
	if s.user == nil {
		return ErrNotAuthenticated
	}
	accounts, err := s.ledger.GetAccounts(ctx, s.user.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "Fetching accounts failed", log.NewFields().
			WithOperation(log.OpFetch).
			WithUser(s.user.ID.String()).
			WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		return fmt.Errorf("fetch accounts: %w", err)
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	s.accounts = accounts
	s.logger.DebugContext(ctx, "Accounts fetched",
		log.FieldOperation, log.OpFetch,
		log.FieldUserID, s.user.ID.String(),
		log.FieldAccounts, len(accounts))
	return nil
}

// Logout forgets the user and the accounts. No call is made.
func (s *Session) Logout() {
	s.user = nil
	s.accounts = []core.Account{}
}

func (s *Session) IsAuthenticated() bool { return s.user != nil }

// User returns the current identity, if any.
func (s *Session) User() (core.User, bool) {
	if s.user == nil {
		return core.User{}, false
	}
	return *s.user, true
}

// UserID returns the current user's id or the zero ID.
func (s *Session) UserID() core.ID {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Accounts returns a copy of the last fetched list.
func (s *Session) Accounts() []core.Account {
	return append([]core.Account{}, s.accounts...)
}

// AccountNames lists account names in fetch order, for selection lists.
func (s *Session) AccountNames() []string {
	return core.AccountNames(s.accounts)
}

// TotalBalance sums the coerced balance of every fetched account.
func (s *Session) TotalBalance() decimal.Decimal {
	return core.TotalBalance(s.accounts)
}
