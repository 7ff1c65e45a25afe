package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The transport and stores return
// these (optionally wrapped) so callers can translate them into per-user
// outcomes without matching on error strings.
//
// These represent factual states about a call or resource, not validation
// failures:
// - ErrNotFound: entity does not exist in store
// - ErrRateLimited: provider answered 429 on the final attempt
// - ErrTimeout: the request timed out on the final attempt
// - ErrUnavailable: call abandoned, no usable response was obtained
// - ErrUnauthorized: provider rejected the management credentials
var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrTimeout      = errors.New("timeout")
	ErrUnavailable  = errors.New("unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)
