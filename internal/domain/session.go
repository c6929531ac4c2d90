package domain

import "fmt"

type SessionStatus string

const (
	StatusUnauthenticated SessionStatus = "unauthenticated"
	StatusConnecting      SessionStatus = "connecting"
	StatusRestoring       SessionStatus = "restoring"
	StatusAuthenticated   SessionStatus = "authenticated"
	StatusDisconnecting   SessionStatus = "disconnecting"
)

// Busy reports whether an operation is in flight for the status.
func (s SessionStatus) Busy() bool {
	switch s {
	case StatusConnecting, StatusRestoring, StatusDisconnecting:
		return true
	default:
		return false
	}
}

// SessionState is an immutable snapshot of the wallet session.
type SessionState struct {
	Current *Identity
	Status  SessionStatus
	// Pending names the provider of an in-flight connect or restore.
	Pending Provider
	// Version increases by one on every committed transition.
	Version uint64
}

func (s SessionState) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Current != nil
}

// Identity returns the active identity, if any.
func (s SessionState) Identity() (Identity, bool) {
	if s.Current == nil {
		return Identity{}, false
	}
	return *s.Current, true
}

// Validate checks that an identity is present exactly when authenticated.
func (s SessionState) Validate() error {
	switch s.Status {
	case StatusUnauthenticated, StatusConnecting, StatusRestoring, StatusAuthenticated, StatusDisconnecting:
	default:
		return fmt.Errorf("unknown session status %q", s.Status)
	}

	if (s.Current != nil) != (s.Status == StatusAuthenticated) {
		return fmt.Errorf("session status %s with identity present=%t", s.Status, s.Current != nil)
	}
	if s.Current != nil && s.Current.IsZero() {
		return fmt.Errorf("authenticated session with empty principal")
	}

	return nil
}
