package session

// Requirement declares what a guarded view needs.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireAuthenticated
	RequireAdmin
)

// Decision is the guard's verdict for a view render.
type Decision int

const (
	// Allow renders the guarded content.
	Allow Decision = iota
	// Wait renders a neutral placeholder while the session restores.
	Wait
	// RedirectLogin sends the visitor to the sign-in view.
	RedirectLogin
	// RedirectHome sends an authenticated but unauthorized user to the
	// default view; they are signed in, merely lacking the role.
	RedirectHome
)

const adminRole = "admin"

// Guard is a pure function of the session snapshot and the declared
// requirement. It never mutates anything; callers act on the decision.
func Guard(snap Snapshot, req Requirement) Decision {
	if req == RequireNone {
		return Allow
	}
	if snap.IsLoading() {
		return Wait
	}
	if snap.State != Authenticated {
		return RedirectLogin
	}
	if req == RequireAdmin && snap.User.Role != adminRole {
		return RedirectHome
	}
	return Allow
}
