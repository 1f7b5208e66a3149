// Package guard decides whether a protected page renders, redirects, or
// shows an access-denied view. Evaluate is pure: it never blocks, never
// errors, and caches nothing, so capability changes take effect on the very
// next navigation.
package guard

import (
	"github.com/campusmess/messmate/internal/model"
	"github.com/campusmess/messmate/internal/session"
)

// Requirement is what a page demands of the session. Roles are matched as
// any-of (superuser always passes); Permissions are required in full.
type Requirement struct {
	Roles       []string
	Permissions []string
}

// Decision is the render outcome for a navigation.
type Decision int

const (
	// Allow renders the requested content.
	Allow Decision = iota
	// Pending renders a placeholder while the startup check is in flight.
	// Never redirect here: that would flash-redirect on every reload.
	Pending
	// RedirectLogin sends the visitor to the public entry point.
	RedirectLogin
	// Denied renders the access-denied view with a go-back action. The user
	// is authenticated, just under-privileged, so no redirect.
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Pending:
		return "pending"
	case RedirectLogin:
		return "redirect-login"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Evaluate applies the checks in order: loading, authentication, roles,
// permissions.
func Evaluate(st session.State, req Requirement) Decision {
	if st.Loading {
		return Pending
	}
	if !st.Authenticated || st.User == nil {
		return RedirectLogin
	}
	if len(req.Roles) > 0 && !model.SatisfiesAny(st.User, req.Roles) {
		return Denied
	}
	if len(req.Permissions) > 0 && !model.HasAllPermissions(st.User, req.Permissions) {
		return Denied
	}
	return Allow
}
