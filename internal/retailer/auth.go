package retailer

import (
	"fmt"
	"sync"
)

// AuthState is a step of the sign-in flow.
type AuthState string

const (
	StateUnauthenticated       AuthState = "unauthenticated"
	StateCredentialsSubmitted  AuthState = "credentials_submitted"
	StateSecondFactorPrompted  AuthState = "second_factor_prompted"
	StateSecondFactorSubmitted AuthState = "second_factor_submitted"
	StateAuthenticated         AuthState = "authenticated"
	StateFailed                AuthState = "failed"
)

// transitions lists the legal successors of each state. Failed is
// reachable from every state that is not terminal.
var transitions = map[AuthState][]AuthState{
	StateUnauthenticated:       {StateCredentialsSubmitted, StateFailed},
	StateCredentialsSubmitted:  {StateSecondFactorPrompted, StateAuthenticated, StateFailed},
	StateSecondFactorPrompted:  {StateSecondFactorSubmitted, StateFailed},
	StateSecondFactorSubmitted: {StateAuthenticated, StateFailed},
}

// Terminal reports whether no transition leaves the state.
func (s AuthState) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// authFlow tracks the sign-in state of one session.
type authFlow struct {
	mu    sync.Mutex
	state AuthState
}

func newAuthFlow() *authFlow {
	return &authFlow{state: StateUnauthenticated}
}

// State returns the current state.
func (f *authFlow) State() AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// advance moves to next, rejecting transitions the flow does not allow.
func (f *authFlow) advance(next AuthState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range transitions[f.state] {
		if s == next {
			f.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal sign-in transition %s -> %s", f.state, next)
}

// fail moves to StateFailed unless the flow already ended.
func (f *authFlow) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.Terminal() {
		f.state = StateFailed
	}
}
