package ledger

import (
	"context"

	"finpocket/internal/core"
)

// Ports consumed by the application. Client talks to the remote service;
// memory.Store is an in-process stand-in.
type (
	Authenticator interface {
		// Login authenticates and returns the identity on success.
		Login(ctx context.Context, username, password string) (core.User, error)
	}

	AccountReader interface {
		// GetAccounts returns the user's accounts, empty when there are none.
		GetAccounts(ctx context.Context, userID core.ID) ([]core.Account, error)
	}

	AccountWriter interface {
		AddAccount(ctx context.Context, userID core.ID, a core.NewAccount) error
	}

	ExpenseWriter interface {
		AddExpense(ctx context.Context, userID core.ID, e core.Expense) error
	}

	BalanceAdjuster interface {
		AdjustBalance(ctx context.Context, userID core.ID, b core.BalanceAdjustment) error
	}

	PocketWriter interface {
		AddPocket(ctx context.Context, userID core.ID, p core.PocketEntry) error
	}

	// Service is everything the front-ends need from a ledger.
	Service interface {
		Authenticator
		AccountReader
		AccountWriter
		ExpenseWriter
		BalanceAdjuster
		PocketWriter
	}
)
