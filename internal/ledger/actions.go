package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"finpocket/internal/core"
)

var _ Service = (*Client)(nil)

// envelope is the reply shape of every action except getAccounts. Fields
// are kept raw so an odd extra field never masks the success flag.
type envelope map[string]json.RawMessage

func (e envelope) str(key string) string {
	var s string
	if err := json.Unmarshal(e[key], &s); err != nil {
		return ""
	}
	return s
}

// Login sends the credentials as given. Trimming is the caller's concern.
func (c *Client) Login(ctx context.Context, username, password string) (core.User, error) {
	raw, err := c.Call(ctx, ActionLogin, Params{
		"username": username,
		"password": password,
	})
	if err != nil {
		return core.User{}, err
	}
	env, err := checkSuccess(ActionLogin, raw)
	if err != nil {
		return core.User{}, err
	}
	user := core.User{Username: env.str("username")}
	if id, ok := env["user_id"]; ok {
		if err := json.Unmarshal(id, &user.ID); err != nil {
			return core.User{}, &BusinessFailure{Action: ActionLogin, Message: "unreadable user_id"}
		}
	}
	return user, nil
}

// GetAccounts returns the accounts array the service replies with. A falsy
// reply (null, false, 0, "" or an empty body) means no accounts.
func (c *Client) GetAccounts(ctx context.Context, userID core.ID) ([]core.Account, error) {
	raw, err := c.Call(ctx, ActionGetAccounts, Params{"user_id": userID.String()})
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

func (c *Client) AddAccount(ctx context.Context, userID core.ID, a core.NewAccount) error {
	return c.mutate(ctx, ActionAddAccount, Params{
		"user_id":      userID.String(),
		"account_name": a.Name,
		"account_type": a.Type.String(),
		"balance":      a.Balance,
	})
}

func (c *Client) AddExpense(ctx context.Context, userID core.ID, e core.Expense) error {
	return c.mutate(ctx, ActionAddExpense, Params{
		"user_id":      userID.String(),
		"category":     e.Category,
		"amount":       e.Amount,
		"account_name": e.AccountName,
		"note":         e.Note,
	})
}

func (c *Client) AdjustBalance(ctx context.Context, userID core.ID, b core.BalanceAdjustment) error {
	return c.mutate(ctx, ActionAdjustBalance, Params{
		"user_id":      userID.String(),
		"account_name": b.AccountName,
		"new_balance":  b.NewBalance,
	})
}

func (c *Client) AddPocket(ctx context.Context, userID core.ID, p core.PocketEntry) error {
	return c.mutate(ctx, ActionAddPocket, Params{
		"user_id":     userID.String(),
		"person_name": p.PersonName,
		"type":        p.Type,
		"amount":      p.Amount,
		"date":        p.Date,
		"purpose":     p.Purpose,
	})
}

func (c *Client) mutate(ctx context.Context, action Action, params Params) error {
	raw, err := c.Call(ctx, action, params)
	if err != nil {
		return err
	}
	_, err = checkSuccess(action, raw)
	return err
}

// checkSuccess decodes an envelope and requires a truthy success flag.
// Anything that is not an object counts as an unsuccessful reply.
func checkSuccess(action Action, raw json.RawMessage) (envelope, error) {
	var env envelope
	if !isObject(raw) {
		return env, &BusinessFailure{Action: action}
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, &BusinessFailure{Action: action, Message: "unreadable reply"}
	}
	if !Truthy(env["success"]) {
		msg := env.str("message")
		if msg == "" {
			msg = env.str("error")
		}
		return env, &BusinessFailure{Action: action, Message: msg}
	}
	return env, nil
}

func decodeAccounts(raw json.RawMessage) ([]core.Account, error) {
	if !Truthy(raw) {
		return []core.Account{}, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] != '[' {
		return nil, &ConnectivityError{
			Action: ActionGetAccounts,
			Err:    fmt.Errorf("%w: expected an array of accounts", ErrMalformedResponse),
		}
	}
	var accounts []core.Account
	if err := json.Unmarshal(trimmed, &accounts); err != nil {
		return nil, &ConnectivityError{
			Action: ActionGetAccounts,
			Err:    fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		}
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	return accounts, nil
}

// Truthy applies JavaScript truthiness to a JSON value, which is how the
// service's replies are meant to be read: false, null, 0, "" and a missing
// value are falsy, everything else (including [] and {}) is truthy.
func Truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '[', '{':
		return true
	case '"':
		return len(v) > 2
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err == nil && f != 0
	}
}

func isObject(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) > 0 && v[0] == '{'
}
