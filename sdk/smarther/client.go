package smarther

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/casaops/go-smarther/internal/auth/legrand"
	"github.com/casaops/go-smarther/internal/browser"
	"github.com/casaops/go-smarther/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultAPIURL is the production Smarther v2.0 device API base URL.
const DefaultAPIURL = "https://api.developer.legrand.com/smarther/v2.0"

// Credentials are the application credentials issued by the Legrand partner
// portal.
type Credentials struct {
	ClientID        string
	ClientSecret    string
	SubscriptionKey string
}

func (c Credentials) validate() error {
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.SubscriptionKey == "" {
		return errors.New("subscription key is required")
	}
	return nil
}

// core is the plumbing shared by the unauthenticated and authenticated client
// views.
type core struct {
	httpClient   *http.Client
	apiURL       string
	authURL      string
	callbackHost string
	callbackPort int
	exchanger    *legrand.TokenClient
}

// Client is the unauthenticated entry point. It can start an interactive
// login or resume from persisted authorization material; device operations
// only exist on the AuthorizedClient it produces.
type Client struct {
	core *core
}

// NewClient creates an unauthenticated client.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.proxyURL != "" {
		cfg.httpClient = util.SetProxy(cfg.proxyURL, cfg.httpClient)
	}
	return &Client{
		core: &core{
			httpClient:   cfg.httpClient,
			apiURL:       cfg.apiURL,
			authURL:      cfg.authURL,
			callbackHost: cfg.callbackHost,
			callbackPort: cfg.callbackPort,
			exchanger:    legrand.NewTokenClient(cfg.httpClient, cfg.tokenURL),
		},
	}, nil
}

// LoginOptions controls the interactive login flow.
type LoginOptions struct {
	// NoBrowser suppresses opening the system browser; the authorization URL
	// is printed (or handed to OnAuthURL) instead.
	NoBrowser bool

	// OnAuthURL, when set, receives the authorization URL once the callback
	// listener is up. When set, the client does not print the URL itself.
	OnAuthURL func(authURL string)
}

// Login runs the interactive authorization-code handshake: it starts the
// loopback callback listener, directs the user to the authorization URL,
// waits for the redirect, and exchanges the received code for a token pair.
// The returned AuthorizationInfo is ready to persist and to Resume.
//
// Cancelling the context abandons the wait and tears the listener down.
func (c *Client) Login(ctx context.Context, creds Credentials, options *LoginOptions) (*legrand.AuthorizationInfo, error) {
	if options == nil {
		options = &LoginOptions{}
	}
	if err := creds.validate(); err != nil {
		return nil, err
	}

	oauthServer := legrand.NewOAuthServer(c.core.callbackHost, c.core.callbackPort)
	if err := oauthServer.Start(); err != nil {
		return nil, err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if stopErr := oauthServer.Stop(stopCtx); stopErr != nil {
			log.Warnf("Failed to stop callback server: %v", stopErr)
		}
	}()

	authURL := oauthServer.AuthorizationURL(c.core.authURL, creds.ClientID)

	if options.OnAuthURL != nil {
		options.OnAuthURL(authURL)
	} else if !options.NoBrowser {
		fmt.Println("Opening browser for Smarther authorization")
		if !browser.IsAvailable() {
			log.Warn("No browser available; please open the URL manually")
			fmt.Printf("Visit the following URL to continue authorization:\n%s\n", authURL)
		} else if err := browser.OpenURL(authURL); err != nil {
			log.Warnf("Failed to open browser automatically: %v", err)
			fmt.Printf("Visit the following URL to continue authorization:\n%s\n", authURL)
		}
	} else {
		fmt.Printf("Visit the following URL to continue authorization:\n%s\n", authURL)
	}

	code, err := oauthServer.Wait(ctx)
	if err != nil {
		return nil, err
	}

	pending := legrand.PendingCodeGrant(code, oauthServer.Nonce())
	grant, err := c.core.exchanger.Exchange(ctx, pending, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, err
	}

	log.Infof("authorization complete, access token valid until %s", grant.ExpiresAt().Format(time.RFC3339))

	return &legrand.AuthorizationInfo{
		Grant:           grant,
		ClientID:        creds.ClientID,
		ClientSecret:    creds.ClientSecret,
		SubscriptionKey: creds.SubscriptionKey,
	}, nil
}

// Resume produces an authorized client from persisted authorization material,
// refreshing the grant through the token endpoint when it is not currently
// valid. A grant that is still unusable after the attempted exchange fails
// with ErrInvalidGrant; endpoint and network failures propagate unchanged so
// the caller can retry without losing state.
//
// The input is not mutated; read AuthorizationInfo from the returned client
// to persist refreshed material.
func (c *Client) Resume(ctx context.Context, info *legrand.AuthorizationInfo) (*AuthorizedClient, error) {
	if info == nil {
		return nil, legrand.NewAuthenticationError(legrand.ErrInvalidGrant, errors.New("authorization info is required"))
	}

	resumed := *info
	if !resumed.Grant.IsValid(time.Now()) {
		grant, err := c.core.exchanger.Exchange(ctx, resumed.Grant, resumed.ClientID, resumed.ClientSecret)
		if err != nil {
			var authErr *legrand.AuthenticationError
			if errors.As(err, &authErr) && authErr.Type == legrand.ErrUnsupportedGrant.Type {
				return nil, legrand.NewAuthenticationError(legrand.ErrInvalidGrant, err)
			}
			return nil, err
		}
		resumed.Grant = grant
		if !resumed.Grant.IsValid(time.Now()) {
			return nil, legrand.NewAuthenticationError(legrand.ErrInvalidGrant, errors.New("grant still unusable after exchange"))
		}
	}

	return &AuthorizedClient{core: c.core, info: resumed}, nil
}

// AuthorizedClient exposes the device operations. It is only obtainable
// through Client.Resume (or Client.Login followed by Resume), which is what
// guarantees every operation starts from a usable grant.
type AuthorizedClient struct {
	core *core

	mu   sync.Mutex
	info legrand.AuthorizationInfo

	refreshGroup singleflight.Group
}

// AuthorizationInfo returns a snapshot of the client's authorization
// material, including any refresh performed since Resume. Persist this after
// operations to keep saved state current.
func (c *AuthorizedClient) AuthorizationInfo() legrand.AuthorizationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// UpdateAuthorization replaces the client's authorization material in place.
// Long-running processes use this to hot-swap credentials when the persisted
// authorization file changes, for example after a re-login in another
// terminal. Operations already in flight finish with the old material.
func (c *AuthorizedClient) UpdateAuthorization(info legrand.AuthorizationInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = info
}

// bearer returns an access token that is valid right now. An expired token
// pair is refreshed through the token endpoint, deduplicated across
// concurrent callers; a grant that cannot be refreshed fails with
// ErrNoValidToken before any network round trip.
func (c *AuthorizedClient) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	grant := c.info.Grant
	c.mu.Unlock()

	if token, err := grant.BearerToken(time.Now()); err == nil {
		return token, nil
	}
	if grant.Kind() != legrand.GrantToken {
		return "", legrand.ErrNoValidToken
	}

	value, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		c.mu.Lock()
		current := c.info
		c.mu.Unlock()

		// A caller that lost the race may find the token already fresh.
		if token, err := current.Grant.BearerToken(time.Now()); err == nil {
			return token, nil
		}

		grant, err := c.core.exchanger.Exchange(ctx, current.Grant, current.ClientID, current.ClientSecret)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.info.Grant = grant
		c.mu.Unlock()

		log.Debugf("access token refreshed, valid until %s", grant.ExpiresAt().Format(time.RFC3339))
		return grant.BearerToken(time.Now())
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (c *AuthorizedClient) subscriptionKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.SubscriptionKey
}
