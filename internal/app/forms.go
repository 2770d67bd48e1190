package app

import "finpocket/internal/core"

// Each page keeps its own draft. Drafts hold raw field text and are only
// checked for presence on required fields.

type LoginForm struct {
	Username string
	Password string
}

func (f LoginForm) Complete() bool {
	return present(f.Username, f.Password)
}

type AccountForm struct {
	Name    string
	Type    core.AccountType
	Balance string
}

// NewAccountForm returns an empty draft with the default account type.
func NewAccountForm() AccountForm {
	return AccountForm{Type: core.AccountBank}
}

func (f AccountForm) Complete() bool {
	return present(f.Name, f.Balance)
}

func (f AccountForm) account() core.NewAccount {
	t := f.Type
	if t == "" {
		t = core.AccountBank
	}
	return core.NewAccount{Name: f.Name, Type: t, Balance: f.Balance}
}

type ExpenseForm struct {
	Category    string
	Amount      string
	AccountName string
	Note        string
}

func (f ExpenseForm) Complete() bool {
	return present(f.Category, f.Amount, f.AccountName)
}

func (f ExpenseForm) expense() core.Expense {
	return core.Expense{Category: f.Category, Amount: f.Amount, AccountName: f.AccountName, Note: f.Note}
}

type BalanceForm struct {
	AccountName string
	NewBalance  string
}

func (f BalanceForm) Complete() bool {
	return present(f.AccountName, f.NewBalance)
}

func (f BalanceForm) adjustment() core.BalanceAdjustment {
	return core.BalanceAdjustment{AccountName: f.AccountName, NewBalance: f.NewBalance}
}

// PocketForm has no required fields; whatever is filled in is sent.
type PocketForm struct {
	PersonName string
	Type       string
	Amount     string
	Date       string // YYYY-MM-DD
	Purpose    string
}

func (f PocketForm) Complete() bool { return true }

func (f PocketForm) entry() core.PocketEntry {
	return core.PocketEntry{PersonName: f.PersonName, Type: f.Type, Amount: f.Amount, Date: f.Date, Purpose: f.Purpose}
}

// Drafts bundles the per-page drafts.
type Drafts struct {
	Login   LoginForm
	Account AccountForm
	Expense ExpenseForm
	Balance BalanceForm
	Pocket  PocketForm
}

func NewDrafts() Drafts {
	return Drafts{Account: NewAccountForm()}
}

func present(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}
