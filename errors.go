package eventbus

import (
	"fmt"

	"github.com/juju/errors"
)

// IsInvalidArgument reports whether err is the InvalidArgument kind: a
// nil key, nil subscriber, nil event/topic, an interface passed to a
// cache read, or a Weak-strength proxy subscribe.
func IsInvalidArgument(err error) bool {
	return errors.IsNotValid(err)
}

// IsAlreadyPresent reports whether err is the AlreadyPresent kind, raised
// by the out-of-scope service registry's SetOnce on a second set.
func IsAlreadyPresent(err error) bool {
	return errors.IsAlreadyExists(err)
}

func invalidArgumentf(format string, args ...any) error {
	return errors.NotValidf(format, args...)
}

func alreadyPresentf(format string, args ...any) error {
	return errors.AlreadyExistsf(format, args...)
}

// SubscriberError wraps a value that escaped a subscriber or vetoer
// callback (a returned error, or a recovered panic). It is never returned
// to a publish() caller — the exception sink is the only consumer.
type SubscriberError struct {
	// Source describes where the failure occurred, e.g.
	// "vetoer(class=*alert.Fired)" or "subscriber(topic=orders.created)".
	Source string
	// Err is the original error, or a synthesized one if the callback
	// panicked with a non-error value.
	Err error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("eventbus: %s: %v", e.Source, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}

func newSubscriberError(source string, cause error) *SubscriberError {
	return &SubscriberError{Source: source, Err: errors.Trace(cause)}
}

// recoverToError converts a recovered panic value into an error, wrapping
// it if it is not already one.
func recoverToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
