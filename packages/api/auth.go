package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Credentials is the answer of the sign-in and sign-up endpoints.
type Credentials struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// SignUp is the registration form.
type SignUp struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

// RequestCode asks the backend to mail a one-time login code to email.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/authenticate", map[string]string{"email": email}, "", nil)
}

// SignIn exchanges email and password for a token and stores it in the session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	return c.signIn(ctx, map[string]string{"email": email, "password": password})
}

// SignInWithCode exchanges email and a mailed code for a token.
func (c *Client) SignInWithCode(ctx context.Context, email, code string) (*Credentials, error) {
	return c.signIn(ctx, map[string]string{"email": email, "code": code})
}

func (c *Client) signIn(ctx context.Context, body map[string]string) (*Credentials, error) {
	creds, err := c.credentials(ctx, "/sessions", body)
	if err != nil {
		return nil, err
	}
	return creds, c.remember(ctx, creds)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, form SignUp) (*Credentials, error) {
	creds, err := c.credentials(ctx, "/users", form)
	if err != nil {
		return nil, err
	}
	return creds, c.remember(ctx, creds)
}

func (c *Client) credentials(ctx context.Context, path string, body any) (*Credentials, error) {
	raw, err := c.call(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := decode(raw, "token", &creds.Token); err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("POST %s: empty token", path)
	}
	if gjson.GetBytes(raw, "user").Exists() {
		if err := decode(raw, "user", &creds.User); err != nil {
			return nil, fmt.Errorf("POST %s: %w", path, err)
		}
	}
	return &creds, nil
}

func (c *Client) remember(ctx context.Context, creds *Credentials) error {
	if c.auth == nil {
		return nil
	}
	return c.auth.SetCredentials(ctx, creds.Token, &creds.User)
}

// Me returns the signed-in user and refreshes the cached copy.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/me", nil, "user", &user); err != nil {
		return nil, err
	}
	if c.auth != nil {
		if err := c.auth.SetUser(ctx, user); err != nil {
			return &user, err
		}
	}
	return &user, nil
}

// UpdateName renames the user.
func (c *Client) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodPatch, pathf("/users/%s/name", userID), map[string]string{"name": name}, "user", &user); err != nil {
		return nil, err
	}
	if c.auth != nil {
		if err := c.auth.SetUser(ctx, user); err != nil {
			return &user, err
		}
	}
	return &user, nil
}

// SignOut revokes the token on the backend and clears the local session. The
// session is cleared even when the backend cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.token() != "" {
		if _, err = c.call(ctx, http.MethodDelete, "/sessions", nil); errors.Is(err, ErrUnauthorized) {
			err = nil
		}
	}
	if c.auth != nil {
		if cerr := c.auth.Clear(ctx); cerr != nil {
			return cerr
		}
	}
	return err
}
