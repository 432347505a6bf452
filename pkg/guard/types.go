package guard

// Reason is the machine-readable code attached to every decision
type Reason string

const (
	ReasonAllowed Reason = "allowed"

	// ReasonSelfEditForbidden denies an actor targeting themself for a role
	// change. This holds unconditionally, owner included, so ownership
	// transfer is always an explicit act performed by one account on another.
	ReasonSelfEditForbidden Reason = "self_edit_forbidden"

	// ReasonCeilingViolation denies a requested role or grant change that
	// exceeds what the actor's own role permits.
	ReasonCeilingViolation Reason = "ceiling_violation"
)

// Decision is the outcome of one authorization check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func deny(reason Reason, message string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message}
}
