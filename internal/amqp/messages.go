package amqp

import (
	"encoding/json"
	"time"

	"finpocket/internal/core"
)

// ActivityMessage announces a write the ledger accepted. It carries no
// amounts; consumers that need details ask the ledger.
type ActivityMessage struct {
	Action      string    `json:"action"`
	UserID      string    `json:"user_id"`
	AccountName string    `json:"account_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewActivityMessage builds the message for a. A zero time is stamped now.
func NewActivityMessage(a core.Activity) *ActivityMessage {
	ts := a.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ActivityMessage{
		Action:      a.Action,
		UserID:      a.UserID.String(),
		AccountName: a.AccountName,
		Timestamp:   ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes a message published by PublishActivity.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
