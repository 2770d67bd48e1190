package ledger

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by ConnectivityError when the service
// answers with a body that is not JSON, or JSON of an unusable shape.
var ErrMalformedResponse = errors.New("malformed ledger response")

// ConnectivityError reports that the ledger could not be reached or sent
// back something unusable. The request may or may not have been applied.
type ConnectivityError struct {
	Action     Action
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *ConnectivityError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ledger %s: status %d: %v", e.Action, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ledger %s: %v", e.Action, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// BusinessFailure reports a well-formed response whose success flag was not
// set. The service does not distinguish causes; Message carries whatever
// explanation it sent, if any.
type BusinessFailure struct {
	Action  Action
	Message string
}

func (e *BusinessFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger %s: not successful: %s", e.Action, e.Message)
	}
	return fmt.Sprintf("ledger %s: not successful", e.Action)
}

// IsConnectivity reports whether err is or wraps a *ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsBusinessFailure reports whether err is or wraps a *BusinessFailure.
func IsBusinessFailure(err error) bool {
	var bf *BusinessFailure
	return errors.As(err, &bf)
}
