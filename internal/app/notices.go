package app

import (
	"finpocket/internal/ledger"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a one-shot message for the user.
type Notice struct {
	Kind NoticeKind
	Text string
}

func (n Notice) IsError() bool { return n.Kind == NoticeError }

const (
	MsgMissingFields = "Please fill all fields"
	MsgFetchFailed   = "Failed to fetch accounts"
)

// messages are the fixed texts shown for one action's outcomes.
type messages struct {
	success      string
	failure      string
	connectivity string
}

var actionMessages = map[ledger.Action]messages{
	ledger.ActionLogin: {
		failure:      "Invalid username or password",
		connectivity: "Error connecting to server",
	},
	ledger.ActionAddAccount: {
		success:      "Account added successfully!",
		failure:      "Failed to add account",
		connectivity: "Error adding account",
	},
	ledger.ActionAddExpense: {
		success:      "Expense added!",
		failure:      "Failed to add expense",
		connectivity: "Error adding expense",
	},
	ledger.ActionAdjustBalance: {
		success:      "Balance updated!",
		failure:      "Failed to update balance",
		connectivity: "Error adjusting balance",
	},
	ledger.ActionAddPocket: {
		success:      "Pocket entry added!",
		failure:      "Failed to add entry",
		connectivity: "Error adding pocket entry",
	},
}

// failureText picks the message for a failed call. Anything that is not a
// connectivity problem is reported as a business failure.
func failureText(action ledger.Action, err error) string {
	m := actionMessages[action]
	if ledger.IsConnectivity(err) {
		return m.connectivity
	}
	return m.failure
}
