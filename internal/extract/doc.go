// Package extract pulls contact identifiers out of free-text profile bios.
// It recognizes @-mention handles, t.me paths (including invite links), and
// bare domains over a fixed TLD allow-list, and filters well-known
// placeholder strings. Extraction is pure text processing with no network
// access or state.
package extract
