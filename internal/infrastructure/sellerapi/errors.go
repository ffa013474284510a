package sellerapi

import "fmt"

// AuthError means the session could not be (re)established: the
// re-authentication callback failed, or a retried request still came back
// 401. It is non-retryable within a run and must abort the whole sync,
// since stale credentials make empty pages indistinguishable from
// end-of-data.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seller api: authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("seller api: authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RateLimitError means the attempt ceiling for 429 responses was exhausted
// for one request. The caller may retry the whole fetch on a later
// invocation.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("seller api: rate limited after %d attempts", e.Attempts)
}

// NetworkError means transport-level failures persisted past the retry
// budget.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("seller api: network failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is any non-2xx status other than 401/429. Surfaced immediately,
// no retry.
type HTTPError struct {
	Status      int
	BodySnippet string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("seller api: HTTP %d: %s", e.Status, e.BodySnippet)
}

// ParseError is a malformed JSON body on an otherwise successful response
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("seller api: malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
