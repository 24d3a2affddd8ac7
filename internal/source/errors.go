package source

import "errors"

// Typed failures returned by source clients. RateLimited and Transient are
// retryable by the caller with backoff; NotFound and Malformed are terminal
// for the item and must be logged, not retried.
var (
	// ErrNotFound indicates the provider has no record for the id.
	ErrNotFound = errors.New("source: not found")

	// ErrRateLimited indicates the provider rejected the call with a
	// 429-equivalent response.
	ErrRateLimited = errors.New("source: rate limited")

	// ErrMalformed indicates the provider returned a record that cannot
	// be normalized (missing id or title).
	ErrMalformed = errors.New("source: malformed record")
)

// TransientError wraps a failure worth retrying: network errors, timeouts,
// and provider 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "source: transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err should be retried with backoff.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is terminal for the item.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed)
}
