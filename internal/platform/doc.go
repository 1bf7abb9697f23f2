// Package platform defines the contract with the remote messaging platform:
// the Client interface the scanner calls, the PeerRef reference type used to
// address remote entities, and the structured failure classes callers make
// retry/skip/escalate decisions on.
//
// The package contains no protocol code. Production deployments plug in a
// real bridge implementation; the memory subpackage provides a deterministic
// fixture-backed implementation for development and tests.
//
// Failure classes are decided on type, never on error text:
//
//	var rl *platform.RateLimitError
//	if errors.As(err, &rl) { // wait rl.RetryAfter, then retry }
//	if platform.IsSoft(err) { // treat as "no data" }
package platform
