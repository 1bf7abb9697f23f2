// Package session persists platform login state between runs.
//
// A Store keeps two things in one SQLite file: sealed auth keys (one per
// phone number, AES-GCM encrypted with a key derived from the API hash via
// PBKDF2) and a peer cache of recently resolved entities. The peer cache
// lets read-only endpoints answer from disk while the platform connection
// is down.
package session
