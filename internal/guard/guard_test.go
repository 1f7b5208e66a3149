package guard

import (
	"testing"

	"github.com/campusmess/messmate/internal/model"
	"github.com/campusmess/messmate/internal/session"
)

func authedState(u *model.User) session.State {
	return session.State{User: u, Authenticated: true}
}

func TestEvaluate_Matrix(t *testing.T) {
	student := &model.User{UserPermissions: []string{"book_meals"}}
	staff := &model.User{IsStaff: true, UserPermissions: []string{"manage_mess"}}
	super := &model.User{IsSuperuser: true}

	cases := []struct {
		name string
		st   session.State
		req  Requirement
		want Decision
	}{
		{
			// Loading wins over everything, even a role mismatch,
			// so a reload never flash-redirects.
			name: "loading renders placeholder",
			st:   session.State{Loading: true},
			req:  Requirement{Roles: []string{"admin"}},
			want: Pending,
		},
		{
			name: "unauthenticated redirects regardless of requirements",
			st:   session.State{},
			req:  Requirement{Roles: []string{"admin"}},
			want: RedirectLogin,
		},
		{
			name: "authenticated with no requirements renders",
			st:   authedState(student),
			req:  Requirement{},
			want: Allow,
		},
		{
			name: "role mismatch renders access-denied, not redirect",
			st:   authedState(student),
			req:  Requirement{Roles: []string{"staff", "admin"}},
			want: Denied,
		},
		{
			name: "staff role satisfies staff requirement",
			st:   authedState(staff),
			req:  Requirement{Roles: []string{"staff"}},
			want: Allow,
		},
		{
			name: "superuser satisfies any role requirement",
			st:   authedState(super),
			req:  Requirement{Roles: []string{"student"}},
			want: Allow,
		},
		{
			name: "all permissions present renders",
			st:   authedState(staff),
			req:  Requirement{Permissions: []string{"manage_mess"}},
			want: Allow,
		},
		{
			name: "missing one of several permissions denies",
			st:   authedState(staff),
			req:  Requirement{Permissions: []string{"manage_mess", "view_reports"}},
			want: Denied,
		},
		{
			name: "role ok but permission missing denies",
			st:   authedState(staff),
			req:  Requirement{Roles: []string{"staff"}, Permissions: []string{"view_reports"}},
			want: Denied,
		},
		{
			name: "authenticated but user missing redirects",
			st:   session.State{Authenticated: true},
			req:  Requirement{},
			want: RedirectLogin,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.st, tc.req); got != tc.want {
				t.Fatalf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluate_NotCachedBetweenCalls(t *testing.T) {
	u := &model.User{}
	st := authedState(u)
	req := Requirement{Permissions: []string{"view_reports"}}

	if got := Evaluate(st, req); got != Denied {
		t.Fatalf("before grant: Evaluate = %v, want Denied", got)
	}

	// Capability flags changed via a profile update take effect on the
	// very next navigation.
	st.User = &model.User{UserPermissions: []string{"view_reports"}}
	if got := Evaluate(st, req); got != Allow {
		t.Fatalf("after grant: Evaluate = %v, want Allow", got)
	}
}
