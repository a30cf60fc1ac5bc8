// Package log provides secure logging built on log/slog.
//
// SecureHandler wraps any slog.Handler and masks sensitive values before they
// are written:
//   - HTTP headers such as Cookie and Authorization
//   - login fields (password, otp, username, email) and session identifiers
//   - bearer, basic and JWT tokens detected by pattern
//   - userinfo and credential query parameters of URLs, including URLs
//     quoted inside error messages
//
// Crawls run with site cookies and signed document links, so the masking
// applies at every level, verbose included.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Info("downloaded", "url", "https://ex.com/a.pdf?token=abc")
//	// url=https://ex.com/a.pdf?token=%2A%2A%2AREDACTED%2A%2A%2A
package log
