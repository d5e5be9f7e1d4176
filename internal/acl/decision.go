package acl

// Decision codes carried on denials. These match the error codes the
// dispatch layer returns to callers.
const (
	CodePermissionDenied = "PermissionDenied"
	CodeScopeViolation   = "ScopeViolation"
)

// Decision is the outcome of a policy check. Allowed decisions carry no
// code or reason; denied decisions carry both.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given code and reason.
func Deny(code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}
