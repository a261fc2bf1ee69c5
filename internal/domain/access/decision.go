package access

import "fmt"

// Kind tags the variant held by a Decision.
type Kind uint8

const (
	KindAllow Kind = iota
	KindRedirectToLogin
	KindRedirectToRoleSelection
	KindRedirectToOwnPortal
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindRedirectToLogin:
		return "redirect_to_login"
	case KindRedirectToRoleSelection:
		return "redirect_to_role_selection"
	case KindRedirectToOwnPortal:
		return "redirect_to_own_portal"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Failure classifies an Error decision.
type Failure uint8

const (
	FailureNone Failure = iota
	// FailureSessionUnavailable: the Session Reader failed or timed out.
	FailureSessionUnavailable
	// FailureUnknownRole: the session carries a role outside the closed set.
	FailureUnknownRole
	// FailureRegistryResolution: a known role has no resolvable portal URL.
	FailureRegistryResolution
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureSessionUnavailable:
		return "session_unavailable"
	case FailureUnknownRole:
		return "unknown_role"
	case FailureRegistryResolution:
		return "registry_resolution"
	default:
		return fmt.Sprintf("failure(%d)", uint8(f))
	}
}

// Decision is the outcome of the access decision procedure.
// Only the fields belonging to Kind are populated.
type Decision struct {
	Kind Kind

	// RedirectToLogin
	ReturnTo string
	Portal   PortalID

	// RedirectToOwnPortal
	Target string

	// Error
	Failure Failure
	Reason  error
}

// Allow lets the request through.
func Allow() Decision { return Decision{Kind: KindAllow} }

// RedirectToLogin sends the user to the central login with a resumption URL.
func RedirectToLogin(returnTo string, portal PortalID) Decision {
	return Decision{Kind: KindRedirectToLogin, ReturnTo: returnTo, Portal: portal}
}

// RedirectToRoleSelection sends the user to onboarding.
func RedirectToRoleSelection() Decision { return Decision{Kind: KindRedirectToRoleSelection} }

// RedirectToOwnPortal sends the user to the portal matching their role.
func RedirectToOwnPortal(target string) Decision {
	return Decision{Kind: KindRedirectToOwnPortal, Target: target}
}

// Error reports that the decision could not be made safely.
func Error(f Failure, reason error) Decision {
	return Decision{Kind: KindError, Failure: f, Reason: reason}
}

// Allowed reports whether the request may pass through.
func (d Decision) Allowed() bool { return d.Kind == KindAllow }

func (d Decision) String() string {
	switch d.Kind {
	case KindRedirectToLogin:
		return fmt.Sprintf("%s(returnTo=%s, portal=%s)", d.Kind, d.ReturnTo, d.Portal)
	case KindRedirectToOwnPortal:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Target)
	case KindError:
		return fmt.Sprintf("%s(%s: %v)", d.Kind, d.Failure, d.Reason)
	default:
		return d.Kind.String()
	}
}
