// Package server exposes the scanner over HTTP.
//
// The REST surface covers login (code request, verification, two-factor),
// dialog and member listings with a disk-cache fallback, common-group
// lookups, run history, and Markdown reports. Each scan runs over its own
// WebSocket: the client opens /ws/scan/{chat}, receives a run_started frame
// with the run id, then the live event stream, and finally a status frame
// naming the outcome. Closing the socket stops the run.
package server
