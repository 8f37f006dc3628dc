package entity

// GateDecision is the outcome of a mutation gate check. A non-nil Arguments
// replaces the arguments the executor receives.
type GateDecision struct {
	Allow     bool
	Reason    string
	Arguments map[string]any
}

func Allow() GateDecision {
	return GateDecision{Allow: true}
}

func Deny(reason string) GateDecision {
	return GateDecision{Reason: reason}
}
