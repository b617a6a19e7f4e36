package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req credentialsReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(authResp{
			User:    User{ID: 7, Email: req.Email, Role: "standard"},
			Access:  tokenPartResp{Token: "acc-1", Expires: time.Now().Add(15 * time.Minute)},
			Refresh: tokenPartResp{Token: "ref-1", Expires: time.Now().Add(720 * time.Hour)},
		})
	})
	mux.HandleFunc("POST /v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	mux.HandleFunc("GET /v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: 7, Email: "user@example.com", Role: "standard"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLogin(t *testing.T) {
	srv := authServer(t)
	c := NewClient(srv.URL, nil)

	u, pair, err := c.Login(context.Background(), "user@example.com", "correct")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "acc-1", pair.Access)
	assert.Equal(t, "ref-1", pair.Refresh)
	assert.True(t, pair.Expires.After(time.Now()))
}

func TestClientLoginWrongPassword(t *testing.T) {
	srv := authServer(t)
	c := NewClient(srv.URL, nil)

	_, _, err := c.Login(context.Background(), "user@example.com", "wrong")
	// A 401 on login means bad credentials, not an expired session.
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClientRegisterConflict(t *testing.T) {
	srv := authServer(t)
	c := NewClient(srv.URL, nil)

	_, err := c.Register(context.Background(), "taken@example.com", "pw")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestClientMe(t *testing.T) {
	srv := authServer(t)
	c := NewClient(srv.URL, nil)

	u, err := c.Me(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", u.Email)

	_, err = c.Me(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
