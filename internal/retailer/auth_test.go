package retailer

import (
	"errors"
	"testing"
	"time"
)

func TestAuthFlowTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		steps   []AuthState
		want    AuthState
		wantErr bool
	}{
		{
			name:  "password only",
			steps: []AuthState{StateCredentialsSubmitted, StateAuthenticated},
			want:  StateAuthenticated,
		},
		{
			name:  "with second factor",
			steps: []AuthState{StateCredentialsSubmitted, StateSecondFactorPrompted, StateSecondFactorSubmitted, StateAuthenticated},
			want:  StateAuthenticated,
		},
		{
			name:    "skip credentials",
			steps:   []AuthState{StateAuthenticated},
			want:    StateUnauthenticated,
			wantErr: true,
		},
		{
			name:    "code before prompt",
			steps:   []AuthState{StateCredentialsSubmitted, StateSecondFactorSubmitted},
			want:    StateCredentialsSubmitted,
			wantErr: true,
		},
		{
			name:    "nothing leaves authenticated",
			steps:   []AuthState{StateCredentialsSubmitted, StateAuthenticated, StateFailed},
			want:    StateAuthenticated,
			wantErr: true,
		},
		{
			name:  "fail from prompt",
			steps: []AuthState{StateCredentialsSubmitted, StateSecondFactorPrompted, StateFailed},
			want:  StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newAuthFlow()
			var err error
			for _, s := range tt.steps {
				if err = f.advance(s); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("advance() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := f.State(); got != tt.want {
				t.Errorf("State() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAuthFlowFailKeepsTerminalState(t *testing.T) {
	t.Parallel()

	f := newAuthFlow()
	f.fail()
	if f.State() != StateFailed {
		t.Fatalf("State() = %s, want failed", f.State())
	}

	f = newAuthFlow()
	_ = f.advance(StateCredentialsSubmitted)
	_ = f.advance(StateAuthenticated)
	f.fail()
	if f.State() != StateAuthenticated {
		t.Errorf("fail() changed terminal state to %s", f.State())
	}
}

func TestTOTPSource(t *testing.T) {
	t.Parallel()

	// RFC 6238 SHA-1 test vectors, truncated to six digits.
	tests := []struct {
		name   string
		secret string
		at     int64
		want   string
	}{
		{name: "t=59", secret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", at: 59, want: "287082"},
		{name: "t=1111111109", secret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", at: 1111111109, want: "081804"},
		{name: "spaced lower case", secret: "gezd gnbv gy3t qojq gezd gnbv gy3t qojq", at: 59, want: "287082"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := NewTOTPSource(tt.secret)
			if err != nil {
				t.Fatalf("NewTOTPSource() error = %v", err)
			}
			src.now = func() time.Time { return time.Unix(tt.at, 0) }
			got, err := src.Code()
			if err != nil {
				t.Fatalf("Code() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Code() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTOTPSourceComputesOnEveryCall(t *testing.T) {
	t.Parallel()

	src, err := NewTOTPSource("GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(59, 0)
	src.now = func() time.Time { return now }
	first, _ := src.Code()
	now = time.Unix(1111111109, 0)
	second, _ := src.Code()
	if first == second {
		t.Errorf("Code() returned %s twice across time steps", first)
	}
}

func TestTOTPSourceErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewTOTPSource("   "); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewTOTPSource(blank) error = %v, want ErrEmptySecret", err)
	}
	src, err := NewTOTPSource("not base32 !!")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Code(); err == nil {
		t.Error("Code() with invalid secret should fail")
	}
}
