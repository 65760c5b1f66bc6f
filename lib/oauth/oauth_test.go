package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoginUrl(t *testing.T) {
	loginUrl, err := GetLoginUrl(context.Background(), AuthCodeRequest{
		AccessType:  "offline",
		Scope:       "https://www.googleapis.com/auth/spreadsheets",
		RedirectUri: "http://localhost:8000/callback",
		ClientId:    "client",
	}, "https://accounts.example/o/oauth2/auth?hd=example")
	require.NoError(t, err)

	parsed, err := url.Parse(loginUrl)
	require.NoError(t, err)
	query := parsed.Query()
	require.Equal(t, "example", query.Get("hd"))
	require.Equal(t, "client", query.Get("client_id"))
	require.Equal(t, "offline", query.Get("access_type"))
	require.Equal(t, "code", query.Get("response_type"))
	require.Len(t, query.Get("state"), 32)
	require.Empty(t, query.Get("code_challenge"))
}

func TestRefresh(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		if form.Get("refresh_token") == "revoked" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer server.Close()

	client := resty.New()
	token, err := Refresh(context.Background(), client, server.URL, RefreshRequest{
		ClientId:     "client",
		ClientSecret: "secret",
		RefreshToken: "long-lived",
	})
	require.NoError(t, err)
	require.Equal(t, "fresh", token.AccessToken)
	require.Equal(t, "long-lived", token.RefreshToken)
	require.Equal(t, 3599, token.ExpiresIn)
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "secret", form.Get("client_secret"))

	_, err = Refresh(context.Background(), client, server.URL, RefreshRequest{RefreshToken: "revoked"})
	require.ErrorIs(t, err, ErrRejected)

	_, err = Refresh(context.Background(), client, server.URL, RefreshRequest{})
	require.Error(t, err)
}

func TestExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Write([]byte(`{"access_token":"a","refresh_token":"r","expires_in":60}`))
	}))
	defer server.Close()

	token, err := ExchangeCode(context.Background(), resty.New(), server.URL, TokenRequest{
		ClientId:    "client",
		AuthCode:    "the-code",
		RedirectUri: "http://localhost/callback",
	})
	require.NoError(t, err)
	require.Equal(t, "r", token.RefreshToken)
}
