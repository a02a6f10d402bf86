package legrand

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Default Legrand partner portal endpoints used when no override is given.
const (
	// DefaultAuthURL is the browser-facing authorization endpoint.
	DefaultAuthURL = "https://partners-login.eliotbylegrand.com/authorize"
	// DefaultTokenURL is the token endpoint used for code and refresh exchanges.
	DefaultTokenURL = "https://partners-login.eliotbylegrand.com/token"
)

// TokenClient exchanges authorization grants for token pairs at the OAuth
// token endpoint. It handles both the authorization-code exchange performed
// after an interactive handshake and the refresh-token exchange performed
// when an access token has expired.
type TokenClient struct {
	httpClient *http.Client
	tokenURL   string
}

// NewTokenClient creates a token client. A nil httpClient falls back to
// http.DefaultClient; an empty tokenURL falls back to DefaultTokenURL.
func NewTokenClient(httpClient *http.Client, tokenURL string) *TokenClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenClient{httpClient: httpClient, tokenURL: tokenURL}
}

// Exchange trades the given grant for a fresh token pair. A pending-code
// grant is sent as an authorization_code exchange and a token grant as a
// refresh_token exchange; any other variant fails with ErrUnsupportedGrant.
//
// On failure the input grant is returned unchanged so callers never lose
// authorization material to a transient error.
func (c *TokenClient) Exchange(ctx context.Context, grant Grant, clientID, clientSecret string) (Grant, error) {
	data := url.Values{}
	switch grant.Kind() {
	case GrantPendingCode:
		data.Set("grant_type", "authorization_code")
		data.Set("code", grant.AccessCode())
	case GrantToken:
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", grant.RefreshToken())
	default:
		return grant, ErrUnsupportedGrant
	}
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return grant, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return grant, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return grant, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		result := gjson.ParseBytes(body)
		return grant, NewTokenEndpointError(resp.StatusCode, result.Get("error").String(), result.Get("error_description").String())
	}

	if !gjson.ValidBytes(body) {
		return grant, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("token endpoint returned invalid JSON"))
	}
	result := gjson.ParseBytes(body)

	accessToken := result.Get("access_token").String()
	if accessToken == "" {
		return grant, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("token response carries no access_token"))
	}

	refreshToken := result.Get("refresh_token").String()
	if refreshToken == "" && grant.Kind() == GrantToken {
		// The endpoint may omit the refresh token on a refresh exchange.
		refreshToken = grant.RefreshToken()
	}

	// The partner portal reports expiry either as a relative expires_in in
	// seconds or as an absolute expires_on Unix timestamp, occasionally
	// string-encoded. Relative expiry is anchored to local receipt time.
	var expiresAt time.Time
	switch {
	case result.Get("expires_in").Exists():
		expiresAt = time.Now().Add(time.Duration(result.Get("expires_in").Int()) * time.Second)
	case result.Get("expires_on").Exists():
		expiresAt = time.Unix(result.Get("expires_on").Int(), 0)
	default:
		return grant, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("token response carries no expiry"))
	}

	return TokenGrant(accessToken, refreshToken, expiresAt), nil
}
