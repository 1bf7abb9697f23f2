// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API hashes, phone numbers,
//     passwords, session material)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - Platform credentials (api_hash, phone numbers, login codes)
//   - Two-factor passwords and other secrets detected by key name
//   - Session auth keys and tokens
//   - Secret values detected by pattern matching (JWTs, bearer tokens,
//     long opaque strings)
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("signing in",
//	    "phone", "+15550100",  // Will be masked
//	    "dialogs", 12,
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
