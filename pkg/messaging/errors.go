package messaging

import "errors"

type dropError struct{ err error }

func (e *dropError) Error() string { return "drop: " + e.err.Error() }
func (e *dropError) Unwrap() error { return e.err }

type deadLetterError struct{ err error }

func (e *deadLetterError) Error() string { return "dead letter: " + e.err.Error() }
func (e *deadLetterError) Unwrap() error { return e.err }

// Drop marks err as a malformed message: it is logged and committed, never
// retried or dead-lettered.
func Drop(err error) error {
	if err == nil {
		return nil
	}
	return &dropError{err: err}
}

// DeadLetter marks err as permanent: the message goes straight to the
// dead-letter topic without retries.
func DeadLetter(err error) error {
	if err == nil {
		return nil
	}
	return &deadLetterError{err: err}
}

func IsDrop(err error) bool {
	var d *dropError
	return errors.As(err, &d)
}

func IsDeadLetter(err error) bool {
	var d *deadLetterError
	return errors.As(err, &d)
}
