package platform

import (
	"errors"
	"fmt"
	"time"
)

// Failure classes surfaced by Client implementations.
//
// Sentinel errors cover the conditions callers only need to recognize;
// RateLimitError and SessionBusyError are structs because they carry data
// the retry policy needs. Implementations must return these types (possibly
// wrapped) rather than encoding the condition in message text.
var (
	// ErrPrivacyRestricted means the target's privacy settings forbid the
	// request. Treated as "no data", never escalated.
	ErrPrivacyRestricted = errors.New("target privacy settings restrict this request")

	// ErrFilterNotSupported means the requested participant filter is not
	// available for this chat type. Treated as "no data".
	ErrFilterNotSupported = errors.New("participant filter not supported for this chat")

	// ErrTwoFactorRequired means sign-in needs the account's 2FA password.
	// This is an authentication-flow status, not a scan-time failure.
	ErrTwoFactorRequired = errors.New("two-factor password required")

	// ErrNotConnected means the client has no active session.
	ErrNotConnected = errors.New("client is not connected")

	// ErrPeerNotFound means the reference could not be resolved to an entity.
	ErrPeerNotFound = errors.New("peer not found")
)

// RateLimitError reports that the platform imposed a wait before the request
// may be retried. Rate-limit waits are infrastructure-imposed and must not
// consume the caller's retry budget.
type RateLimitError struct {
	// RetryAfter is how long the platform asked us to wait.
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// SessionBusyError reports transient contention on the underlying session
// storage. Unrelated to platform rate limits; retried with linear backoff.
type SessionBusyError struct {
	// Cause is the underlying storage error, if known.
	Cause error
}

// Error implements error.
func (e *SessionBusyError) Error() string {
	if e.Cause == nil {
		return "session storage busy"
	}
	return "session storage busy: " + e.Cause.Error()
}

// Unwrap exposes the underlying storage error.
func (e *SessionBusyError) Unwrap() error { return e.Cause }

// IsSoft reports whether err belongs to the soft-failure class that is
// swallowed as "no data" without retry or escalation.
func IsSoft(err error) bool {
	return errors.Is(err, ErrPrivacyRestricted) || errors.Is(err, ErrFilterNotSupported)
}
