// Package session holds the current-user state machine. One Controller is
// constructed at process start and injected into every consumer; there is no
// package-level mutable state.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/campusmess/messmate/internal/api"
	"github.com/campusmess/messmate/internal/errs"
	"github.com/campusmess/messmate/internal/model"
	"github.com/campusmess/messmate/internal/tokenstore"
)

// State is a consistent snapshot of the session. Authenticated implies User
// is present; mutations are atomic, so a reader never observes a
// half-transitioned state.
type State struct {
	User          *model.User
	Loading       bool
	Authenticated bool
}

// Controller implements the four-transition session machine:
// initializing → unauthenticated, initializing → authenticated,
// unauthenticated → authenticated (login), authenticated → unauthenticated
// (logout). A failed login lands back in unauthenticated with Loading false.
type Controller struct {
	api    *api.Client
	store  *tokenstore.Store
	log    *zap.Logger
	reload func()

	bootstrapOnce sync.Once

	mu    sync.Mutex
	state State
}

// Option configures a Controller.
type Option func(*Controller)

// WithReloadHook sets the callback run after logout to force a restart of
// the application entry point, so no cached view state survives.
func WithReloadHook(fn func()) Option {
	return func(c *Controller) { c.reload = fn }
}

// New constructs the controller in the initializing state (Loading true)
// so route guards render a placeholder until Bootstrap has run.
func New(client *api.Client, store *tokenstore.Store, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:    client,
		store:  store,
		log:    log,
		reload: func() {},
		state:  State{Loading: true},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the current state. The embedded user is cloned
// so callers cannot mutate shared state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.User = cloneUser(c.state.User)
	return st
}

// Bootstrap runs the startup check exactly once per process lifetime. It
// never fails: every error path degrades to the logged-out state with the
// token store cleared.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.bootstrapOnce.Do(func() {
		if _, ok := c.store.Get(); !ok {
			c.setLoggedOut()
			return
		}
		user, err := c.api.TokenInfo(ctx)
		if err != nil {
			c.log.Info("startup auth check failed, logging out", zap.Error(err))
			_ = c.store.Clear()
			c.setLoggedOut()
			return
		}
		c.setAuthenticated(user)
	})
}

// Login authenticates against the role-specific endpoint. On success the
// token write lands before the profile fetch, and the profile fetch lands
// before the authenticated transition becomes visible. On failure the state
// is unauthenticated with Loading cleared and a *LoginError is returned.
func (c *Controller) Login(ctx context.Context, creds api.Credentials, role string) error {
	c.setLoading(true)

	endpoint := api.StudentLoginPath
	if role == "admin" {
		endpoint = api.AdminLoginPath
	}

	pair, err := c.api.Login(ctx, endpoint, creds)
	if err != nil {
		c.setLoggedOut()
		return classifyLoginError(err)
	}

	if err := c.store.Set(pair); err != nil {
		c.setLoggedOut()
		return &LoginError{Reason: ReasonOther, Message: "could not persist session", cause: err}
	}

	user, err := c.api.TokenInfo(ctx)
	if err != nil {
		// A login that cannot produce a profile is treated as an auth
		// failure: drop the tokens rather than keep a half-usable session.
		_ = c.store.Clear()
		c.setLoggedOut()
		return classifyLoginError(err)
	}

	c.setAuthenticated(user)
	c.log.Info("login succeeded", zap.String("role", string(model.DeriveRole(user))))
	return nil
}

// Register submits a signup payload to the role-specific endpoint. The new
// user is not logged in. Failures are expected (duplicate phone numbers and
// the like) and come back as a result, never as an error.
func (c *Controller) Register(ctx context.Context, data api.RegisterData, role string) RegisterResult {
	endpoint := api.StudentSignupPath
	if role == "admin" {
		endpoint = api.AdminSignupPath
	}

	if err := c.api.Register(ctx, endpoint, data); err != nil {
		c.log.Info("registration failed", zap.Error(err))
		msg := "registration failed"
		var se *api.StatusError
		if errors.As(err, &se) && se.Message != "" {
			msg = se.Message
		}
		return RegisterResult{OK: false, Message: msg}
	}
	return RegisterResult{OK: true}
}

// Logout clears the token store, transitions to unauthenticated, and runs
// the reload hook. Any cached view data elsewhere in the application is
// untrustworthy after this returns.
func (c *Controller) Logout() {
	if err := c.store.Clear(); err != nil {
		c.log.Warn("clearing token store", zap.Error(err))
	}
	c.setLoggedOut()
	c.reload()
}

// UpdateUser merges a partial profile patch into the current user without a
// network round-trip. No-op when unauthenticated.
func (c *Controller) UpdateUser(patch model.UserPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Authenticated || c.state.User == nil {
		return
	}
	u := cloneUser(c.state.User)
	patch.Apply(u)
	c.state.User = u
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.state.Loading = v
	c.mu.Unlock()
}

func (c *Controller) setAuthenticated(u *model.User) {
	c.mu.Lock()
	c.state = State{User: cloneUser(u), Authenticated: true}
	c.mu.Unlock()
}

func (c *Controller) setLoggedOut() {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Groups = append([]string(nil), u.Groups...)
	cp.UserPermissions = append([]string(nil), u.UserPermissions...)
	return &cp
}

// RegisterResult reports the outcome of a registration attempt.
type RegisterResult struct {
	OK      bool
	Message string
}

// Login failure reasons, distinguished for user-facing messages.
const (
	ReasonInvalidCredentials = "invalid-credentials"
	ReasonInvalidInput       = "invalid-input"
	ReasonServerError        = "server-error"
	ReasonOther              = "other"
)

// LoginError is the typed failure returned by Login.
type LoginError struct {
	Reason  string
	Message string
	cause   error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.cause }

func classifyLoginError(err error) *LoginError {
	var se *api.StatusError
	serverMsg := ""
	if errors.As(err, &se) {
		serverMsg = se.Message
	}

	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return &LoginError{
			Reason:  ReasonInvalidCredentials,
			Message: "invalid credentials: check your phone number and password",
			cause:   err,
		}
	case errors.Is(err, errs.ErrInvalidInput):
		msg := serverMsg
		if msg == "" {
			msg = "invalid input: check your details"
		}
		return &LoginError{Reason: ReasonInvalidInput, Message: msg, cause: err}
	case errors.Is(err, errs.ErrServerUnavailable):
		return &LoginError{
			Reason:  ReasonServerError,
			Message: "server error: try again later",
			cause:   err,
		}
	default:
		msg := serverMsg
		if msg == "" {
			msg = "login failed: " + err.Error()
		}
		return &LoginError{Reason: ReasonOther, Message: msg, cause: err}
	}
}
