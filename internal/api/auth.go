package api

import (
	"context"
	"fmt"

	"github.com/campusmess/messmate/internal/model"
	"github.com/campusmess/messmate/internal/tokenstore"
)

// Role-specific auth endpoints. The session controller picks between them;
// nothing else calls these paths.
const (
	StudentLoginPath  = "/auth/student/login/"
	AdminLoginPath    = "/auth/admin/login/"
	StudentSignupPath = "/auth/signup/"
	AdminSignupPath   = "/auth/admin/signup/"
)

// Credentials is the login request body.
type Credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// RegisterData is the signup request body.
type RegisterData struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	RollNo   string `json:"roll_no,omitempty"`
	RoomNo   string `json:"room_no,omitempty"`
}

// Login submits credentials to the given role endpoint and returns the
// issued token pair. Unauthenticated: a failed login never touches the
// token store and never triggers the refresh protocol.
func (c *Client) Login(ctx context.Context, endpoint string, creds Credentials) (tokenstore.TokenPair, error) {
	var got struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := c.public(ctx, "POST", endpoint, creds, &got); err != nil {
		return tokenstore.TokenPair{}, err
	}
	if got.Access == "" || got.Refresh == "" {
		return tokenstore.TokenPair{}, fmt.Errorf("login response missing tokens")
	}
	return tokenstore.TokenPair{Access: got.Access, Refresh: got.Refresh}, nil
}

// Register submits a signup payload to the given role endpoint. The new
// user is not logged in.
func (c *Client) Register(ctx context.Context, endpoint string, data RegisterData) error {
	return c.public(ctx, "POST", endpoint, data, nil)
}

// TokenInfo fetches the profile of the user the current access token
// belongs to. A 2xx response without the user_info field is a
// malformed-response error, which callers treat as an auth failure.
func (c *Client) TokenInfo(ctx context.Context) (*model.User, error) {
	var got struct {
		UserInfo *model.User `json:"user_info"`
	}
	if err := c.Get(ctx, "/token/info", &got); err != nil {
		return nil, err
	}
	if got.UserInfo == nil {
		return nil, fmt.Errorf("token info response missing user_info")
	}
	return got.UserInfo, nil
}
