package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoListenAddr is returned when the listen address is empty.
	ErrNoListenAddr = errors.New("no listen address specified")

	// ErrMissingAPIID is returned when no platform API id is configured
	// and no fixture is used. The id is issued per application by the
	// platform and cannot be defaulted.
	ErrMissingAPIID = errors.New("missing API id: set api_id in the config file or use --fixture")

	// ErrMissingAPIHash is returned when no platform API hash is
	// configured and no fixture is used.
	ErrMissingAPIHash = errors.New("missing API hash: set api_hash in the config file or use --fixture")

	// ErrInvalidDelay is returned when the probe delay is negative.
	// A negative delay is invalid; use 0 for no delay between probes.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidDepth is returned when the traversal depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidLimit is returned when a fetch limit is not positive.
	// A zero limit would silently disable the corresponding feature.
	ErrInvalidLimit = errors.New("invalid limit: must be positive")
)
