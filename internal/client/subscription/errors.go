package subscription

import (
	"errors"
	"fmt"
)

var (
	// ErrChannel means the transport could not open or keep the channel.
	ErrChannel = errors.New("channel error")

	// ErrTimedOut means the transport stopped hearing from the server.
	ErrTimedOut = errors.New("subscription timed out")

	// ErrSubscriptionFailed matches every SubscriptionFailedError.
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrMalformed marks a single undecodable message. The stream stays usable.
	ErrMalformed = errors.New("malformed change message")

	// ErrClosed is returned by Open after the manager was closed.
	ErrClosed = errors.New("subscription manager closed")
)

// SubscriptionFailedError is raised once when a subscription gives up
// reconnecting. The subscription stays closed until it is opened again.
type SubscriptionFailedError struct {
	Key      Key
	Attempts int
	Err      error
}

func (e *SubscriptionFailedError) Error() string {
	return fmt.Sprintf("subscription %s failed after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *SubscriptionFailedError) Unwrap() []error {
	return []error{ErrSubscriptionFailed, e.Err}
}

// HandlerError reports that one event could not be applied.
// It never terminates the subscription.
type HandlerError struct {
	Key Key
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("subscription %s: failed to handle event: %v", e.Key, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
