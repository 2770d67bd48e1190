package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpocket/internal/core"
	"finpocket/internal/ledger"
)

var fixed = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, core.ID) {
	t.Helper()
	s := New("demo", "secret")
	s.SetClock(func() time.Time { return fixed })
	user, err := s.Login(context.Background(), "demo", "secret")
	require.NoError(t, err)
	return s, user.ID
}

func TestLogin(t *testing.T) {
	s := New("demo", "secret")
	ctx := context.Background()

	user, err := s.Login(ctx, "demo", "secret")
	require.NoError(t, err)
	assert.Equal(t, core.User{ID: "1", Username: "demo"}, user)

	for _, creds := range [][2]string{{"demo", "wrong"}, {"nobody", "secret"}, {"", ""}} {
		_, err := s.Login(ctx, creds[0], creds[1])
		assert.True(t, ledger.IsBusinessFailure(err), "%v", creds)
	}
}

func TestAddUserKeepsID(t *testing.T) {
	s := New("demo", "secret")
	second := s.AddUser("other", "pw")
	assert.Equal(t, core.ID("2"), second)
	assert.Equal(t, core.ID("1"), s.AddUser("demo", "changed"))

	_, err := s.Login(context.Background(), "demo", "changed")
	assert.NoError(t, err)
}

func TestAccountsLifecycle(t *testing.T) {
	s, uid := newStore(t)
	ctx := context.Background()

	accounts, err := s.GetAccounts(ctx, uid)
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)

	require.NoError(t, s.AddAccount(ctx, uid, core.NewAccount{Name: "Cash", Type: core.AccountCash, Balance: "500"}))
	require.NoError(t, s.AddAccount(ctx, uid, core.NewAccount{Name: "HDFC", Balance: "1250.50"}))

	accounts, err = s.GetAccounts(ctx, uid)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, core.ID("1"), accounts[0].ID)
	assert.Equal(t, core.AccountBank, accounts[1].Type, "type defaults to Bank")
	assert.Equal(t, "2024-03-01 09:30:00", accounts[0].LastUpdated)
	assert.Equal(t, "1750.5", core.TotalBalance(accounts).String())
}

func TestAddAccountRejects(t *testing.T) {
	s, uid := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddAccount(ctx, uid, core.NewAccount{Name: "Cash", Type: core.AccountCash, Balance: "1"}))

	cases := map[string]core.NewAccount{
		"duplicate":    {Name: "cash", Balance: "1"},
		"empty name":   {Name: "  ", Balance: "1"},
		"bad type":     {Name: "X", Type: "Crypto", Balance: "1"},
		"bad balance":  {Name: "Y", Balance: "lots"},
		"empty amount": {Name: "Z", Balance: ""},
		"huge balance": {Name: "W", Balance: "1e99999999"},
	}
	for name, a := range cases {
		err := s.AddAccount(ctx, uid, a)
		assert.True(t, ledger.IsBusinessFailure(err), name)
	}
	assert.True(t, ledger.IsBusinessFailure(s.AddAccount(ctx, "99", core.NewAccount{Name: "A", Balance: "1"})))
}

func TestAddExpenseDebitsAccount(t *testing.T) {
	s, uid := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddAccount(ctx, uid, core.NewAccount{Name: "Cash", Type: core.AccountCash, Balance: "500"}))

	later := fixed.Add(time.Hour)
	s.SetClock(func() time.Time { return later })
	require.NoError(t, s.AddExpense(ctx, uid, core.Expense{Category: "Fuel", Amount: "120.25", AccountName: "Cash"}))

	accounts, _ := s.GetAccounts(ctx, uid)
	assert.Equal(t, "379.75", accounts[0].Balance.String())
	assert.Equal(t, "2024-03-01 10:30:00", accounts[0].LastUpdated)

	records := s.Expenses()
	require.Len(t, records, 1)
	assert.Equal(t, "Fuel", records[0].Category)
	assert.Equal(t, uid, records[0].UserID)

	assert.True(t, ledger.IsBusinessFailure(s.AddExpense(ctx, uid, core.Expense{Amount: "1", AccountName: "Nope"})))
	assert.True(t, ledger.IsBusinessFailure(s.AddExpense(ctx, uid, core.Expense{Amount: "x", AccountName: "Cash"})))
	assert.True(t, ledger.IsBusinessFailure(s.AddExpense(ctx, uid, core.Expense{Amount: "1e99999999", AccountName: "Cash"})))
	assert.Len(t, s.Expenses(), 1)
	accounts, _ = s.GetAccounts(ctx, uid)
	assert.Equal(t, "379.75", accounts[0].Balance.String())
}

func TestAdjustBalance(t *testing.T) {
	s, uid := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddAccount(ctx, uid, core.NewAccount{Name: "Cash", Type: core.AccountCash, Balance: "500"}))

	require.NoError(t, s.AdjustBalance(ctx, uid, core.BalanceAdjustment{AccountName: "Cash", NewBalance: "42"}))
	accounts, _ := s.GetAccounts(ctx, uid)
	assert.Equal(t, "42", accounts[0].Balance.String())

	assert.True(t, ledger.IsBusinessFailure(s.AdjustBalance(ctx, uid, core.BalanceAdjustment{AccountName: "HDFC", NewBalance: "1"})))
	assert.True(t, ledger.IsBusinessFailure(s.AdjustBalance(ctx, uid, core.BalanceAdjustment{AccountName: "Cash", NewBalance: "?"})))
	assert.True(t, ledger.IsBusinessFailure(s.AdjustBalance(ctx, uid, core.BalanceAdjustment{AccountName: "Cash", NewBalance: "1e-99999999"})))
}

func TestAddPocketLeavesBalances(t *testing.T) {
	s, uid := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddAccount(ctx, uid, core.NewAccount{Name: "Cash", Type: core.AccountCash, Balance: "500"}))

	require.NoError(t, s.AddPocket(ctx, uid, core.PocketEntry{PersonName: "Ravi", Type: "Gave", Amount: "200"}))
	require.NoError(t, s.AddPocket(ctx, uid, core.PocketEntry{}))

	accounts, _ := s.GetAccounts(ctx, uid)
	assert.Equal(t, "500", accounts[0].Balance.String())
	assert.Len(t, s.Pockets(), 2)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.txt")
	content := "# name,type,balance\nCash,Cash,500\n\nHDFC,Bank,1250.50\nPaytm,,20\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := NewFromFile("demo", "demo", path)
	require.NoError(t, err)
	accounts, _ := s.GetAccounts(context.Background(), "1")
	require.Len(t, accounts, 3)
	assert.Equal(t, []string{"Cash", "HDFC", "Paytm"}, core.AccountNames(accounts))
	assert.Equal(t, core.AccountBank, accounts[2].Type)

	s, err = NewFromFile("demo", "demo", filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	accounts, _ = s.GetAccounts(context.Background(), "1")
	assert.Empty(t, accounts)

	require.NoError(t, os.WriteFile(path, []byte("Cash,Cash,500\ncash,Cash,1\n"), 0o644))
	_, err = NewFromFile("demo", "demo", path)
	assert.Error(t, err)
}
