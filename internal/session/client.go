package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// User is the identity slice of the account the client works with.
type User struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenPair holds the raw access and refresh tokens together with the
// refresh token's expiry, which the store persists across restarts.
type TokenPair struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	Expires time.Time `json:"expires"`
}

// API is the server surface the session manager depends on. The HTTP
// client below implements it; tests substitute an in-memory fake.
type API interface {
	Register(ctx context.Context, email, password string) (User, error)
	Login(ctx context.Context, email, password string) (User, TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (User, TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string, allSessions bool) error
	Me(ctx context.Context, accessToken string) (User, error)
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL (e.g. "http://localhost:8080").
// A nil httpClient falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPartResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    User          `json:"user"`
	Access  tokenPartResp `json:"access"`
	Refresh tokenPartResp `json:"refresh"`
}

// do sends a JSON request and decodes a JSON response into out (when out
// is non-nil). Error statuses are mapped onto the package's typed errors.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		bs, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrEmailTaken
	case resp.StatusCode == http.StatusBadRequest:
		return ErrValidation
	default:
		return fmt.Errorf("unexpected status %d from %s %s", resp.StatusCode, method, path)
	}
}

// Register creates an account. It does not establish a session; the
// caller signs in afterwards.
func (c *Client) Register(ctx context.Context, email, password string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", "", credentialsReq{Email: email, Password: password}, &u)
	return u, err
}

// Login exchanges credentials for a token pair. A 401 surfaces as
// ErrInvalidCredentials rather than the generic ErrUnauthorized so the
// UI can distinguish "wrong password" from "session expired".
func (c *Client) Login(ctx context.Context, email, password string) (User, TokenPair, error) {
	var resp authResp
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", credentialsReq{Email: email, Password: password}, &resp)
	if err != nil {
		if err == ErrUnauthorized {
			err = ErrInvalidCredentials
		}
		return User{}, TokenPair{}, err
	}
	return resp.User, TokenPair{Access: resp.Access.Token, Refresh: resp.Refresh.Token, Expires: resp.Refresh.Expires}, nil
}

// Refresh rotates the refresh token and returns the replacement pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (User, TokenPair, error) {
	var resp authResp
	err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", "",
		map[string]string{"refresh_token": refreshToken}, &resp)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return resp.User, TokenPair{Access: resp.Access.Token, Refresh: resp.Refresh.Token, Expires: resp.Refresh.Expires}, nil
}

// Logout revokes the refresh token, or all of the user's tokens when
// allSessions is set.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string, allSessions bool) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", accessToken,
		map[string]any{"refresh_token": refreshToken, "all_sessions": allSessions}, nil)
}

// Me returns the identity behind an access token.
func (c *Client) Me(ctx context.Context, accessToken string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/v1/auth/me", accessToken, nil, &u)
	return u, err
}
