package workflow

import "errors"

// FatalError marks an error that must not be retried: missing credentials,
// malformed input, anything where repeating the step cannot succeed. Every
// other step error is treated as transient and retried with backoff. The
// classification is made at the error's origin so the executor's retry
// policy never inspects error strings.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as non-retryable. A nil err returns nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err is classified as non-retryable.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
