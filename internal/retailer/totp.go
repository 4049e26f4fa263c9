package retailer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// CodeSource produces one-time codes for a second-factor prompt.
type CodeSource interface {
	// Code returns a code valid at the moment of the call.
	Code() (string, error)
}

// ErrEmptySecret is returned by NewTOTPSource for a blank secret.
var ErrEmptySecret = errors.New("totp secret is empty")

// TOTPSource derives RFC 6238 codes from a shared base32 secret.
type TOTPSource struct {
	secret string
	now    func() time.Time
}

// NewTOTPSource returns a source for secret. Spaces and lower case letters,
// as shown by most authenticator setup pages, are accepted.
func NewTOTPSource(secret string) (*TOTPSource, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(secret), ""))
	if s == "" {
		return nil, ErrEmptySecret
	}
	return &TOTPSource{secret: s, now: time.Now}, nil
}

// Code implements CodeSource. The code is computed on every call.
func (s *TOTPSource) Code() (string, error) {
	code, err := totp.GenerateCode(s.secret, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to generate totp code: %w", err)
	}
	return code, nil
}
