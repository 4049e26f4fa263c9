package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys that are always masked.
var sensitiveKeys = map[string]bool{
	"password":    true,
	"passwd":      true,
	"pass":        true,
	"secret":      true,
	"totp":        true,
	"totp_secret": true,
	"totpsecret":  true,
	"otp":         true,
	"otp_code":    true,
	"mfa_code":    true,
	"email":       true,
	"username":    true,
	"login":       true,
	"cookie":      true,
	"set-cookie":  true,
	"session":     true,
	"session_id":  true,
	"token":       true,
	"credential":  true,
	"credentials": true,

	"authorization": true,
}

// sensitiveKeywords mask any key containing them, such as "amazon_password".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "totp", "cookie", "credential", "email",
}

// sensitivePatterns mask values regardless of their key.
var sensitivePatterns = []*regexp.Regexp{
	// e-mail addresses
	regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`),
	// base32 TOTP secrets, optionally grouped by spaces
	regexp.MustCompile(`^(?:[A-Z2-7]{4} ?){4,}=*$`),
	// JWTs
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	// long opaque identifiers such as session tokens
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// SecureHandler is an slog.Handler that masks sensitive attributes before
// passing records to the wrapped handler.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next uses slog.Default().Handler().
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(mask(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = mask(a)
	}
	return &SecureHandler{next: h.next.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

// mask returns a with its value replaced when it is sensitive.
// LogValuer values are resolved first so their output is inspected too.
func mask(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = mask(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || containsSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

func containsSensitiveKeyword(key string) bool {
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger returns a text logger writing to w. Verbose enables debug
// output; otherwise info and above are logged.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, for log shippers.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
