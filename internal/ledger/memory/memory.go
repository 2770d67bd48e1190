// Package memory is an in-process ledger for demos and local development.
// It answers the same ports as the remote client and keeps nothing on disk.
package memory

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"finpocket/internal/core"
	"finpocket/internal/ledger"
)

var _ ledger.Service = (*Store)(nil)

// TimeLayout is how last_updated is rendered.
const TimeLayout = "2006-01-02 15:04:05"

type credential struct {
	id       core.ID
	password string
}

// ExpenseRecord is a stored expense.
type ExpenseRecord struct {
	UserID core.ID
	core.Expense
	At time.Time
}

// PocketRecord is a stored pocket entry.
type PocketRecord struct {
	UserID core.ID
	core.PocketEntry
	At time.Time
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[string]credential
	accounts map[core.ID][]core.Account
	expenses []ExpenseRecord
	pockets  []PocketRecord
	nextUser int
	nextAcct int
}

// New returns a store with one user.
func New(username, password string) *Store {
	s := &Store{
		now:      time.Now,
		users:    map[string]credential{},
		accounts: map[core.ID][]core.Account{},
	}
	s.AddUser(username, password)
	return s
}

// NewFromFile returns a store with one user whose accounts are read from
// path. Each line holds "name,type,balance"; blank lines and lines starting
// with # are skipped. A missing file yields no accounts.
func NewFromFile(username, password, path string) (*Store, error) {
	s := New(username, password)
	if path == "" {
		return s, nil
	}
	id := s.users[username].id
	for _, line := range readLines(path) {
		parts := strings.SplitN(line, ",", 3)
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		a := core.NewAccount{
			Name:    strings.TrimSpace(parts[0]),
			Type:    core.AccountType(strings.TrimSpace(parts[1])),
			Balance: strings.TrimSpace(parts[2]),
		}
		if err := s.AddAccount(context.Background(), id, a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetClock replaces the time source used for last_updated.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser registers a user and returns its id. Registering an existing
// username replaces its password and keeps its id.
func (s *Store) AddUser(username, password string) core.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.users[username]; ok {
		s.users[username] = credential{id: c.id, password: password}
		return c.id
	}
	s.nextUser++
	id := core.ID(strconv.Itoa(s.nextUser))
	s.users[username] = credential{id: id, password: password}
	return id
}

func (s *Store) Login(_ context.Context, username, password string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[username]
	if !ok || c.password != password {
		return core.User{}, &ledger.BusinessFailure{Action: ledger.ActionLogin, Message: "invalid credentials"}
	}
	return core.User{ID: c.id, Username: username}, nil
}

// GetAccounts returns a copy of the user's accounts in creation order.
func (s *Store) GetAccounts(_ context.Context, userID core.ID) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account{}, s.accounts[userID]...), nil
}

func (s *Store) AddAccount(_ context.Context, userID core.ID, a core.NewAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fail := func(msg string) error {
		return &ledger.BusinessFailure{Action: ledger.ActionAddAccount, Message: msg}
	}
	if !s.knownUser(userID) {
		return fail("unknown user")
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return fail("account name is required")
	}
	if s.find(userID, name) >= 0 {
		return fail("account already exists")
	}
	typ := a.Type
	if typ == "" {
		typ = core.AccountBank
	}
	if !typ.IsValid() {
		return fail("unknown account type")
	}
	balance, err := core.ParseAmount(a.Balance)
	if err != nil {
		return fail("balance is not a number")
	}
	s.nextAcct++
	s.accounts[userID] = append(s.accounts[userID], core.Account{
		ID:          core.ID(strconv.Itoa(s.nextAcct)),
		Name:        name,
		Type:        typ,
		Balance:     core.BalanceFromDecimal(balance),
		LastUpdated: s.now().Format(TimeLayout),
	})
	return nil
}

// AddExpense records the expense and takes its amount off the account.
func (s *Store) AddExpense(_ context.Context, userID core.ID, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fail := func(msg string) error {
		return &ledger.BusinessFailure{Action: ledger.ActionAddExpense, Message: msg}
	}
	i := s.find(userID, e.AccountName)
	if i < 0 {
		return fail("account not found")
	}
	amount, err := core.ParseAmount(e.Amount)
	if err != nil {
		return fail("amount is not a number")
	}
	acct := &s.accounts[userID][i]
	acct.Balance = core.BalanceFromDecimal(acct.Balance.Decimal().Sub(amount))
	acct.LastUpdated = s.now().Format(TimeLayout)
	s.expenses = append(s.expenses, ExpenseRecord{UserID: userID, Expense: e, At: s.now()})
	return nil
}

// AdjustBalance overwrites the account balance.
func (s *Store) AdjustBalance(_ context.Context, userID core.ID, b core.BalanceAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fail := func(msg string) error {
		return &ledger.BusinessFailure{Action: ledger.ActionAdjustBalance, Message: msg}
	}
	i := s.find(userID, b.AccountName)
	if i < 0 {
		return fail("account not found")
	}
	balance, err := core.ParseAmount(b.NewBalance)
	if err != nil {
		return fail("balance is not a number")
	}
	acct := &s.accounts[userID][i]
	acct.Balance = core.BalanceFromDecimal(balance)
	acct.LastUpdated = s.now().Format(TimeLayout)
	return nil
}

// AddPocket records the entry as given. Pocket entries never touch balances.
func (s *Store) AddPocket(_ context.Context, userID core.ID, p core.PocketEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.knownUser(userID) {
		return &ledger.BusinessFailure{Action: ledger.ActionAddPocket, Message: "unknown user"}
	}
	s.pockets = append(s.pockets, PocketRecord{UserID: userID, PocketEntry: p, At: s.now()})
	return nil
}

// Expenses returns every recorded expense.
func (s *Store) Expenses() []ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExpenseRecord(nil), s.expenses...)
}

// Pockets returns every recorded pocket entry.
func (s *Store) Pockets() []PocketRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PocketRecord(nil), s.pockets...)
}

func (s *Store) knownUser(id core.ID) bool {
	for _, c := range s.users {
		if c.id == id {
			return true
		}
	}
	return false
}

// find returns the index of the named account, or -1. Names match
// case-insensitively so "cash" and "Cash" cannot coexist.
func (s *Store) find(userID core.ID, name string) int {
	name = strings.TrimSpace(name)
	for i, a := range s.accounts[userID] {
		if strings.EqualFold(a.Name, name) {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
