package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	PathSignup  = "/api/v1/auth/signup"
	PathLogin   = "/api/v1/auth/login"
	PathLogout  = "/api/v1/auth/logout"
	PathRefresh = "/api/v1/auth/refresh-token"
	PathProfile = "/api/v1/auth/profile"
)

type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client calls the auth endpoints. It must be given a transport that does not
// itself refresh, otherwise a rejected refresh would recurse.
type Client struct {
	t Transport
}

func NewClient(t Transport) *Client {
	return &Client{t: t}
}

func (c *Client) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	var s Session
	if err := Send(ctx, c.t, http.MethodPost, PathSignup, in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := Send(ctx, c.t, http.MethodPost, PathLogin, loginInput{Email: email, Password: password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return Send(ctx, c.t, http.MethodPost, PathLogout, nil, nil)
}

// Refresh exchanges the stored refresh credential for a new pair. A rejection
// by the server is reported as ErrInvalidRefreshCredential; anything else is
// a transport failure and is returned unchanged.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	var s Session
	err := Send(ctx, c.t, http.MethodPost, PathRefresh, nil, &s)
	if err != nil {
		switch StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshCredential, err)
		}
		return nil, err
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: refresh response without user", ErrRequestFailed)
	}
	return &s, nil
}

func (c *Client) Profile(ctx context.Context) (*Session, error) {
	var s Session
	if err := Send(ctx, c.t, http.MethodGet, PathProfile, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// IsUnauthorized reports whether err is a final 401 from the server.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuthenticationExpired) || errors.Is(err, ErrRefreshFailed)
}
