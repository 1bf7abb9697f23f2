// Package model defines the data structures shared across the scanner:
// gifts, per-user scan results, and the event variants streamed to clients.
//
// Values in this package are plain data. A ScanResult is built once per
// probed user and never mutated afterwards; events are emitted in the order
// the traversal produced them and carry everything a consumer needs without
// further lookups.
package model
