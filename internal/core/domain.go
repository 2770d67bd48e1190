package core

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const (
	AccountBank   AccountType = "Bank"
	AccountCash   AccountType = "Cash"
	AccountWallet AccountType = "Wallet"
	AccountOther  AccountType = "Other"
)

const (
	PocketGave     PocketType = "Gave"
	PocketReceived PocketType = "Received"
)

type (
	AccountType string
	PocketType  string

	// ID is an identifier issued by the ledger service. The service is backed
	// by a spreadsheet, so ids arrive either as JSON numbers or strings; both
	// are kept in their textual form and sent back verbatim.
	ID string

	User struct {
		ID       ID     `json:"user_id"`
		Username string `json:"username"`
	}

	Account struct {
		ID          ID          `json:"account_id"`
		Name        string      `json:"account_name"`
		Type        AccountType `json:"account_type"`
		Balance     Balance     `json:"balance"`
		LastUpdated string      `json:"last_updated"`
	}

	NewAccount struct {
		Name    string
		Type    AccountType
		Balance string
	}

	Expense struct {
		Category    string
		Amount      string
		AccountName string
		Note        string
	}

	BalanceAdjustment struct {
		AccountName string
		NewBalance  string
	}

	PocketEntry struct {
		PersonName string
		Type       string
		Amount     string
		Date       string // YYYY-MM-DD
		Purpose    string
	}
)

// ExpenseCategories lists the categories offered when recording an expense.
var ExpenseCategories = []string{
	"Swiggy",
	"Zomato",
	"Restaurant",
	"Groceries",
	"Fuel",
	"Cash Withdrawal",
	"Other",
}

// AccountTypes lists the account types in display order.
var AccountTypes = []AccountType{AccountBank, AccountCash, AccountWallet, AccountOther}

// PocketTypes lists the pocket entry directions.
var PocketTypes = []PocketType{PocketGave, PocketReceived}

func (t AccountType) String() string { return string(t) }

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountBank, AccountCash, AccountWallet, AccountOther:
		return true
	default:
		return false
	}
}

func (t PocketType) String() string { return string(t) }

func (id ID) String() string { return string(id) }

// IsZero reports whether no id was issued.
func (id ID) IsZero() bool { return id == "" }

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = ID(n.String())
		return nil
	}
}

// MarshalJSON emits numeric ids as numbers so a round trip keeps the shape.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// AccountNames returns the names of accounts in their original order.
func AccountNames(accounts []Account) []string {
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Name)
	}
	return names
}
