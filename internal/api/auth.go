package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
)

// User is the authenticated account as reported by the backend.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
}

// UnmarshalJSON accepts both the backend spelling (_id, nombre, rol,
// telefono) and the one User marshals to.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		MongoID  string `json:"_id"`
		ID       any    `json:"id"`
		Nombre   string `json:"nombre"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Rol      string `json:"rol"`
		Role     string `json:"role"`
		Telefono string `json:"telefono"`
		Phone    string `json:"phone"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id := raw.MongoID
	if id == "" && raw.ID != nil {
		id = display(raw.ID)
	}
	*u = User{
		ID:    id,
		Name:  firstNonEmpty(raw.Nombre, raw.Name),
		Email: raw.Email,
		Role:  firstNonEmpty(raw.Rol, raw.Role),
		Phone: firstNonEmpty(raw.Telefono, raw.Phone),
	}
	return nil
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileInput struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Phone string `json:"telefono,omitempty"`
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	Token string
	User  User
}

// authPayload reads token and user either from the envelope top level or
// from data.
func authPayload(env *envelope) (AuthResult, error) {
	res := AuthResult{Token: env.Token}
	userRaw := env.User
	if len(env.Data) > 0 && string(env.Data) != "null" {
		var inner struct {
			Token string          `json:"token"`
			User  json.RawMessage `json:"user"`
		}
		if err := json.Unmarshal(env.Data, &inner); err == nil {
			if inner.Token != "" {
				res.Token = inner.Token
			}
			if len(inner.User) > 0 {
				userRaw = inner.User
			}
		}
	}
	if len(userRaw) > 0 && string(userRaw) != "null" {
		if err := json.Unmarshal(userRaw, &res.User); err != nil {
			return AuthResult{}, errors.Wrap(err, "decode user")
		}
	}
	return res, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	env, err := c.do(ctx, http.MethodPost, "auth/login", nil, creds)
	if err != nil {
		return AuthResult{}, err
	}
	res, err := authPayload(env)
	if err != nil {
		return AuthResult{}, err
	}
	if res.Token == "" {
		return AuthResult{}, &Error{Status: http.StatusUnauthorized, Message: "respuesta de login sin token"}
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	env, err := c.do(ctx, http.MethodPost, "auth/register", nil, in)
	if err != nil {
		return AuthResult{}, err
	}
	return authPayload(env)
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	env, err := c.do(ctx, http.MethodGet, "auth/me", nil, nil)
	if err != nil {
		return User{}, err
	}
	res, err := authPayload(env)
	if err != nil {
		return User{}, err
	}
	if res.User.ID == "" && res.User.Email == "" && len(env.Data) > 0 {
		// /me may return the user as data itself
		if err := json.Unmarshal(env.Data, &res.User); err != nil {
			return User{}, errors.Wrap(err, "decode user")
		}
	}
	return res.User, nil
}

// VerifyToken checks the current token and returns its user.
func (c *Client) VerifyToken(ctx context.Context) (User, error) {
	env, err := c.do(ctx, http.MethodGet, "auth/verify-token", nil, nil)
	if err != nil {
		return User{}, err
	}
	res, err := authPayload(env)
	return res.User, err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "auth/logout", nil, nil)
	return err
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (User, error) {
	env, err := c.do(ctx, http.MethodPut, "auth/profile", nil, in)
	if err != nil {
		return User{}, err
	}
	res, err := authPayload(env)
	if err != nil {
		return User{}, err
	}
	if res.User.ID == "" && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &res.User); err != nil {
			return User{}, errors.Wrap(err, "decode user")
		}
	}
	return res.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	_, err := c.do(ctx, http.MethodPut, "auth/change-password", nil, map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	})
	return err
}
