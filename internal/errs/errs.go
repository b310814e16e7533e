// Package errs defines the sentinel error kinds that give PRISM's error
// handling policy (spec section 7) concrete Go identity. Call sites wrap
// these with fmt.Errorf("...: %w", ErrX) so errors.Is still matches.
package errs

import "errors"

var (
	// ErrDecodeFailure means wire bytes could not be parsed as a prism
	// message. Recovered locally by the caller: drop and log.
	ErrDecodeFailure = errors.New("prism: decode failure")

	// ErrDecryptFailure means an AEAD tag mismatch or missing key material.
	// Same recovery policy as ErrDecodeFailure.
	ErrDecryptFailure = errors.New("prism: decrypt failure")

	// ErrThresholdNotMet means fewer than t peer responses arrived for an
	// MPC op within its timeout. The op is abandoned; poll state is
	// untouched so the poll can retry on its own schedule.
	ErrThresholdNotMet = errors.New("prism: threshold not met")

	// ErrBatchExhausted means a claim_chunk request could not be satisfied
	// within budget. Callers should wait and retry, not fail outright.
	ErrBatchExhausted = errors.New("prism: preproduct batch exhausted")

	// ErrRouteNotFound means the client could not find onion_layers
	// reachable EMIXes. The send log entry should remain pending.
	ErrRouteNotFound = errors.New("prism: no route found")

	// ErrLinkNotUsable means every candidate link failed or was filtered.
	ErrLinkNotUsable = errors.New("prism: link not usable")

	// ErrARKVerification means an ARK's signature or VRF proof was invalid.
	// The ARK is dropped; it never promotes a server into the server DB.
	ErrARKVerification = errors.New("prism: ARK verification failed")

	// ErrEpochMismatch means a package's link belongs to a different
	// epoch than the receiving hook. Filtered silently, no error surfaced
	// to the caller beyond this sentinel for internal bookkeeping.
	ErrEpochMismatch = errors.New("prism: epoch mismatch")

	// ErrFatal wraps an error that should tear down the owning epoch.
	ErrFatal = errors.New("prism: fatal role error")
)
