// Package main provides the entry point for the Telephasma server.
//
// Telephasma maps hidden connections between messaging platform accounts
// by walking the social graph through bios and gift ledgers.
//
// Usage:
//
//	telephasma serve --fixture graph.yml
//	telephasma serve --addr 127.0.0.1:9000 -c myconfig.yml
//
// See --help for all available options.
package main

// main is the entry point for Telephasma.
func main() {
	Execute()
}
