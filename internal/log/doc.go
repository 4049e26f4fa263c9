// Package log builds slog loggers that never print retailer credentials.
//
// SecureHandler wraps any slog.Handler and masks attribute values whose key
// names a secret (password, TOTP secret, one-time code, session cookie,
// e-mail address) or whose value looks like one (e-mail addresses, base32
// TOTP secrets, bearer tokens, JWTs). Masking applies at every level,
// including debug output.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("signing in", "retailer", "amazon", "email", email) // email=***REDACTED***
package log
