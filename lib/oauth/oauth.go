package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("catalogdesk.lib.oauth")

// ErrRejected is returned when the token endpoint answers with an error
// status, usually because the grant was revoked.
var ErrRejected = errors.New("token endpoint rejected the request")

type AuthCodeRequest struct {
	AccessType   string
	Scope        string
	RedirectUri  string
	CodeVerifier string
	ClientId     string
}

func GetLoginUrl(ctx context.Context, req AuthCodeRequest, baseLoginUrl string) (string, error) {
	_, span := tracer.Start(ctx, "GetLoginUrl")
	defer span.End()

	endpoint, err := url.Parse(baseLoginUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse base login url")
		return "", err
	}

	values := endpoint.Query()
	values.Add("client_id", req.ClientId)
	values.Add("access_type", req.AccessType)
	values.Add("scope", req.Scope)
	if req.CodeVerifier != "" {
		values.Add("code_challenge", req.CodeVerifier)
	}
	values.Add("redirect_uri", req.RedirectUri)

	span.SetAttributes(
		attribute.String("client_id", req.ClientId),
		attribute.String("access_type", req.AccessType),
		attribute.String("scope", req.Scope),
		attribute.String("redirect_uri", req.RedirectUri),
	)

	nonce := make([]byte, 16)
	_, err = rand.Read(nonce)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate 16 random bytes")
		return "", err
	}

	state := hex.EncodeToString(nonce)
	values.Add("state", state)
	values.Add("response_type", "code")
	values.Add("prompt", "consent")

	endpoint.RawQuery = values.Encode()
	return endpoint.String(), nil
}

type OpenIdToken struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	IdToken      string `json:"id_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

type TokenRequest struct {
	ClientId     string
	ClientSecret string
	AuthCode     string
	CodeVerifier string
	RedirectUri  string
}

type RefreshRequest struct {
	ClientId     string
	ClientSecret string
	Scope        string
	RefreshToken string
}

func GenerateCodeVerifier() (string, error) {
	nonce := make([]byte, 32)
	_, err := rand.Read(nonce)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(nonce), nil
}

func postForm(ctx context.Context, client *resty.Client, tokenUrl string, form url.Values) (OpenIdToken, error) {
	res, err := client.R().
		SetContext(ctx).
		SetBody(form.Encode()).
		SetHeader("content-type", "application/x-www-form-urlencoded").
		Post(tokenUrl)
	if err != nil {
		return OpenIdToken{}, err
	}
	if res.IsError() {
		return OpenIdToken{}, fmt.Errorf("%w: %s", ErrRejected, res.Status())
	}

	var token OpenIdToken
	err = json.Unmarshal(res.Body(), &token)
	if err != nil {
		return OpenIdToken{}, err
	}
	if token.AccessToken == "" {
		return OpenIdToken{}, fmt.Errorf("%w: response carried no access token", ErrRejected)
	}
	return token, nil
}

// ExchangeCode trades an authorization code for a token pair.
func ExchangeCode(ctx context.Context, client *resty.Client, tokenUrl string, req TokenRequest) (OpenIdToken, error) {
	ctx, span := tracer.Start(ctx, "ExchangeCode")
	defer span.End()

	form := url.Values{}
	form.Add("grant_type", "authorization_code")
	form.Add("client_id", req.ClientId)
	if req.ClientSecret != "" {
		form.Add("client_secret", req.ClientSecret)
	}
	form.Add("code", req.AuthCode)
	if req.CodeVerifier != "" {
		form.Add("code_verifier", req.CodeVerifier)
	}
	form.Add("redirect_uri", req.RedirectUri)

	token, err := postForm(ctx, client, tokenUrl, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OpenIdToken{}, err
	}
	return token, nil
}

// Refresh obtains a new access token. Token endpoints usually omit the
// refresh token from the response, the original one is carried over then.
func Refresh(ctx context.Context, client *resty.Client, tokenUrl string, req RefreshRequest) (OpenIdToken, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	if req.RefreshToken == "" {
		err := fmt.Errorf("token is not refreshable")
		span.RecordError(err)
		return OpenIdToken{}, err
	}

	form := url.Values{}
	form.Add("grant_type", "refresh_token")
	form.Add("client_id", req.ClientId)
	if req.ClientSecret != "" {
		form.Add("client_secret", req.ClientSecret)
	}
	if req.Scope != "" {
		form.Add("scope", req.Scope)
	}
	form.Add("refresh_token", req.RefreshToken)

	token, err := postForm(ctx, client, tokenUrl, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OpenIdToken{}, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = req.RefreshToken
	}
	return token, nil
}
