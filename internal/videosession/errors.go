package videosession

import "fmt"

// SessionAlreadyActiveError rejects a second concurrent video session.
type SessionAlreadyActiveError struct {
	ActiveSessionID string
}

func (e *SessionAlreadyActiveError) Error() string {
	return fmt.Sprintf("video session %s is already active", e.ActiveSessionID)
}

// UnsupportedPersonaError rejects personas without a usable replica mapping.
type UnsupportedPersonaError struct {
	PersonaID string
	Reason    string
}

func (e *UnsupportedPersonaError) Error() string {
	return fmt.Sprintf("persona %s has no usable video replica: %s", e.PersonaID, e.Reason)
}
