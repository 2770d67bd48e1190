package core

import "time"

// Activity describes a write the ledger accepted. It is what gets
// announced to other systems after the fact.
type Activity struct {
	Action      string    `json:"action"`
	UserID      ID        `json:"user_id"`
	AccountName string    `json:"account_name,omitempty"`
	At          time.Time `json:"at"`
}
