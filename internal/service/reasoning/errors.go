package reasoning

import "errors"

// Step failure classification. Providers map their backend's failures onto
// these sentinels so the invoker can decide what is worth retrying.
var (
	// ErrUnavailable indicates the backend is down or overloaded.
	ErrUnavailable = errors.New("reasoning backend unavailable")

	// ErrRateLimited indicates the backend rejected the call for quota reasons.
	ErrRateLimited = errors.New("reasoning backend rate limited")

	// ErrTimeout indicates the step did not complete in time.
	ErrTimeout = errors.New("reasoning step timed out")

	// ErrInvalidRequest indicates the request itself was malformed or
	// rejected; retrying the same request cannot succeed.
	ErrInvalidRequest = errors.New("invalid reasoning request")
)

// IsTransient reports whether a step failure may succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout)
}
