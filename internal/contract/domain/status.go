package domain

// Status is the contract lifecycle state. It only moves forward.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusAwaitingSignature Status = "awaiting_signature"
	StatusSigned            Status = "signed"
)

var transitions = map[Status]Status{
	StatusDraft:             StatusAwaitingSignature,
	StatusAwaitingSignature: StatusSigned,
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusAwaitingSignature, StatusSigned:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is listed in the transition table.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Transition returns a StatusConflictError when from -> to is not allowed.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		required, _ := RequiredFor(to)
		return &StatusConflictError{Current: from, Required: required}
	}
	return nil
}

// RequiredFor returns the status a contract must hold before moving to target.
func RequiredFor(target Status) (Status, bool) {
	for from, to := range transitions {
		if to == target {
			return from, true
		}
	}
	return "", false
}
