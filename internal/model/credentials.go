package model

import (
	"fmt"
	"log/slog"
)

const redacted = "***REDACTED***"

// Credentials is the login material for one retailer account.
//
// Credentials implements fmt.Formatter and slog.LogValuer so that printing
// or logging a value never reveals the password or TOTP secret.
type Credentials struct {
	Email      string
	Password   string
	TOTPSecret string
}

// Complete reports whether the credentials can be used to sign in.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// HasSecondFactor reports whether a TOTP secret is configured.
func (c Credentials) HasSecondFactor() bool {
	return c.TOTPSecret != ""
}

// String implements fmt.Stringer.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{email:%s password:%s totp:%t}", redacted, redacted, c.HasSecondFactor())
}

// GoString implements fmt.GoStringer so %#v is redacted too.
func (c Credentials) GoString() string {
	return c.String()
}

// Format implements fmt.Formatter; every verb prints the redacted form.
func (c Credentials) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(c.String()))
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", redacted),
		slog.String("password", redacted),
		slog.Bool("totp", c.HasSecondFactor()),
	)
}
