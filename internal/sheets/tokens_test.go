package sheets

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenExchange(t *testing.T) {
	fake, server := newFakeSheets(t)
	client, _ := setupClient(t, server, "")
	ctx := context.Background()

	_, err := client.Tokens().Token(ctx)
	require.ErrorIs(t, err, ErrAuthRequired)

	token, err := client.Tokens().Exchange(ctx, "code", "verifier")
	require.NoError(t, err)
	require.Equal(t, "access", token.AccessToken)

	access, err := client.Tokens().Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "access", access)
	require.Equal(t, 1, fake.tokenCalls)

	fake.rejectGrant = true
	_, err = client.Tokens().Exchange(ctx, "stale", "")
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestLoginUrl(t *testing.T) {
	_, server := newFakeSheets(t)
	client, _ := setupClient(t, server, "")

	_, err := client.Tokens().LoginUrl(context.Background(), "")
	require.Error(t, err)

	client.tokens.config.AuthUrl = "https://accounts.example/o/oauth2/auth"
	client.tokens.config.RedirectUri = "http://localhost:8085"
	client.tokens.config.Scope = "https://www.googleapis.com/auth/spreadsheets"

	login, err := client.Tokens().LoginUrl(context.Background(), "challenge")
	require.NoError(t, err)
	parsed, err := url.Parse(login)
	require.NoError(t, err)
	require.Equal(t, "accounts.example", parsed.Host)
	query := parsed.Query()
	require.Equal(t, "client", query.Get("client_id"))
	require.Equal(t, "offline", query.Get("access_type"))
	require.Equal(t, "challenge", query.Get("code_challenge"))
	require.Equal(t, "http://localhost:8085", query.Get("redirect_uri"))
}
