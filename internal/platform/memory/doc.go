// Package memory provides a deterministic, fixture-backed implementation of
// platform.Client for development and tests. A fixture describes a small
// social graph (users with bios and gift ledgers, chats with members, a
// recent-dialog order) in YAML; the client replays it without any network.
//
// Failure injection makes the retry policy testable: FailNext queues errors
// that the next calls of a given name return before the fixture answer.
package memory
