package nightscout

import (
	"errors"
	"fmt"
)

// Transport errors surfaced to callers. Each kind renders a different
// user-facing message, so the taxonomy is part of the contract: a timeout is
// never reported as "no data", and a 401 is never a generic failure.
var (
	// ErrTimeout means the upstream did not answer within the request
	// ceiling.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrAuthentication means the upstream rejected the credential (HTTP
	// 401). Callers should suggest checking the raw API secret: the header
	// carries its SHA-1 hash, so a pre-hashed value configured by mistake
	// will never match.
	ErrAuthentication = errors.New("upstream rejected credentials")

	// ErrUpstreamUnavailable means the transport failed before an HTTP
	// response arrived (connection refused, reset, DNS failure).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse means the upstream answered with a body that is
	// not the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// HTTPError is any other non-2xx response, carrying status and body for
// diagnostics.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.Body)
}
