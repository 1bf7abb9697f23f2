// Package config provides configuration structures and utilities for
// Telephasma. It defines the server, credential, and scan-policy options,
// their defaults, and the YAML config-file loader.
package config
