package sheets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"catalogdesk-backend/internal/sheets/db"
	"catalogdesk-backend/lib/oauth"
	"catalogdesk-backend/lib/timezone"

	"github.com/go-resty/resty/v2"
)

const tokenName = "sheets"

type OAuthConfig struct {
	TokenUrl     string `json:"token_url"`
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	// AuthUrl and RedirectUri are only needed for the interactive login.
	AuthUrl     string `json:"auth_url"`
	RedirectUri string `json:"redirect_uri"`
}

// TokenSource hands out access tokens, refreshing them shortly before they
// expire. Refreshed tokens are persisted so restarts reuse them.
type TokenSource struct {
	client *resty.Client
	config OAuthConfig
	qry    *db.Queries

	mu        sync.Mutex
	token     oauth.OpenIdToken
	expiresAt time.Time
}

func NewTokenSource(client *resty.Client, config OAuthConfig, journal *Journal) *TokenSource {
	return &TokenSource{
		client: client,
		config: config,
		qry:    journal.qry,
	}
}

func (s *TokenSource) fresh() bool {
	return s.token.AccessToken != "" && timezone.Now().Add(time.Minute).Before(s.expiresAt)
}

// Token returns a valid access token or ErrAuthRequired when none can be
// obtained.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fresh() {
		return s.token.AccessToken, nil
	}

	stored, err := s.qry.GetOAuthToken(ctx, tokenName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if err == nil {
		var token oauth.OpenIdToken
		err = json.Unmarshal([]byte(stored.Token), &token)
		if err != nil {
			slog.WarnContext(ctx, "discarding unreadable stored token", "err", err)
		} else {
			s.token = token
			s.expiresAt = time.Unix(stored.ExpiresAt, 0)
			if s.fresh() {
				return s.token.AccessToken, nil
			}
		}
	}

	refreshToken := s.token.RefreshToken
	if refreshToken == "" {
		refreshToken = s.config.RefreshToken
	}
	if refreshToken == "" || s.config.TokenUrl == "" {
		return "", fmt.Errorf("%w: no refresh token configured", ErrAuthRequired)
	}

	token, err := oauth.Refresh(ctx, s.client, s.config.TokenUrl, oauth.RefreshRequest{
		ClientId:     s.config.ClientId,
		ClientSecret: s.config.ClientSecret,
		Scope:        s.config.Scope,
		RefreshToken: refreshToken,
	})
	if errors.Is(err, oauth.ErrRejected) {
		return "", fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if err != nil {
		return "", err
	}

	err = s.store(ctx, token)
	if err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "refreshed sheets access token", "expires_in", token.ExpiresIn)
	return token.AccessToken, nil
}

// LoginUrl is the consent page an operator opens to authorize exports,
// the code it redirects with is passed to Exchange.
func (s *TokenSource) LoginUrl(ctx context.Context, codeVerifier string) (string, error) {
	if s.config.AuthUrl == "" {
		return "", fmt.Errorf("no auth_url configured")
	}
	return oauth.GetLoginUrl(ctx, oauth.AuthCodeRequest{
		AccessType:   "offline",
		Scope:        s.config.Scope,
		RedirectUri:  s.config.RedirectUri,
		CodeVerifier: codeVerifier,
		ClientId:     s.config.ClientId,
	}, s.config.AuthUrl)
}

// Exchange trades an authorization code for tokens and persists them.
func (s *TokenSource) Exchange(ctx context.Context, authCode, codeVerifier string) (oauth.OpenIdToken, error) {
	token, err := oauth.ExchangeCode(ctx, s.client, s.config.TokenUrl, oauth.TokenRequest{
		ClientId:     s.config.ClientId,
		ClientSecret: s.config.ClientSecret,
		AuthCode:     authCode,
		CodeVerifier: codeVerifier,
		RedirectUri:  s.config.RedirectUri,
	})
	if errors.Is(err, oauth.ErrRejected) {
		return oauth.OpenIdToken{}, fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if err != nil {
		return oauth.OpenIdToken{}, err
	}
	err = s.Store(ctx, token)
	if err != nil {
		return oauth.OpenIdToken{}, err
	}
	return token, nil
}

// Store persists a token obtained out of band, e.g. from an authorization
// code exchange.
func (s *TokenSource) Store(ctx context.Context, token oauth.OpenIdToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(ctx, token)
}

func (s *TokenSource) store(ctx context.Context, token oauth.OpenIdToken) error {
	expiresAt := timezone.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	serialized, err := json.Marshal(token)
	if err != nil {
		return err
	}
	err = s.qry.SaveOAuthToken(ctx, db.SaveOAuthTokenParams{
		Name:      tokenName,
		Token:     string(serialized),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return err
	}
	s.token = token
	s.expiresAt = expiresAt
	return nil
}

// Invalidate forgets the current access token, the next Token call
// refreshes it.
func (s *TokenSource) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Time{}
	err := s.qry.SaveOAuthToken(ctx, db.SaveOAuthTokenParams{
		Name:      tokenName,
		Token:     mustJSON(s.token),
		ExpiresAt: 0,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to invalidate stored token", "err", err)
	}
}

func mustJSON(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(out)
}
