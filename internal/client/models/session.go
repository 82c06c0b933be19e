package models

// SessionStatus is the authentication state machine:
// Unknown(loading) -> {LoggedOut, LoggedIn}; LoggedIn <-> LoggedOut.
type SessionStatus int

const (
	SessionUnknown SessionStatus = iota
	SessionLoggedOut
	SessionLoggedIn
)

func (s SessionStatus) String() string {
	switch s {
	case SessionUnknown:
		return "unknown"
	case SessionLoggedOut:
		return "logged-out"
	case SessionLoggedIn:
		return "logged-in"
	default:
		return "invalid"
	}
}

// Session is a snapshot of the derived authentication state. LoggedIn
// implies User != nil and a credential in the token store.
type Session struct {
	Status  SessionStatus
	User    *UserProfile
	Loading bool
}

func (s Session) LoggedIn() bool {
	return s.Status == SessionLoggedIn
}
