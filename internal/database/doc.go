// Package database provides SQLite-based storage for Telephasma scan
// history.
//
// This package implements the ScanDB, which stores:
//   - Runs: one record per traversal with its parameters and outcome
//   - Findings: probed users with their full results as JSON
//   - Gift edges: sender-to-receiver connections discovered via gifts
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
//  1. No external dependencies - the database is a single file
//  2. CGO-free implementation allows easy cross-compilation
//  3. Sufficient performance for our use case
//  4. WAL mode provides good concurrent read performance
package database
