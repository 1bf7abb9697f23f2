// Package report renders stored scan runs for human consumption.
//
// The Markdown writer produces a shareable document: run parameters,
// per-depth statistics with a mermaid chart, a findings table, and the
// gift graph connecting discovered accounts.
package report
