package smarther

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/casaops/go-smarther/internal/auth/legrand"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig) error

// clientConfig holds the configuration for a Client.
type clientConfig struct {
	httpClient   *http.Client
	apiURL       string
	authURL      string
	tokenURL     string
	callbackHost string
	callbackPort int
	proxyURL     string
}

// defaultConfig returns the default client configuration, targeting the
// production Legrand endpoints.
func defaultConfig() *clientConfig {
	return &clientConfig{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		apiURL:       DefaultAPIURL,
		authURL:      legrand.DefaultAuthURL,
		tokenURL:     legrand.DefaultTokenURL,
		callbackHost: legrand.DefaultCallbackHost,
		callbackPort: legrand.DefaultCallbackPort,
	}
}

// WithHTTPClient sets the HTTP client used for every outbound request.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *clientConfig) error {
		if httpClient == nil {
			return errors.New("http client must not be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithAPIURL overrides the device API base URL.
// Default is the production Smarther v2.0 API.
func WithAPIURL(rawURL string) ClientOption {
	return func(c *clientConfig) error {
		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("api url must be an absolute URL")
		}
		c.apiURL = rawURL
		return nil
	}
}

// WithAuthEndpoints overrides the authorization and token endpoints.
// Defaults are the production partner portal endpoints.
func WithAuthEndpoints(authURL, tokenURL string) ClientOption {
	return func(c *clientConfig) error {
		if authURL == "" || tokenURL == "" {
			return errors.New("auth and token urls must not be empty")
		}
		c.authURL = authURL
		c.tokenURL = tokenURL
		return nil
	}
}

// WithCallbackAddress sets the loopback address the interactive login binds.
// The address must match the redirect URI registered with the partner portal.
// Default is localhost:23784.
func WithCallbackAddress(host string, port int) ClientOption {
	return func(c *clientConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("callback port must be between 1 and 65535")
		}
		if host == "" {
			host = legrand.DefaultCallbackHost
		}
		c.callbackHost = host
		c.callbackPort = port
		return nil
	}
}

// WithProxy routes outbound requests through the given proxy URL.
// Supports socks5, http, and https schemes.
func WithProxy(proxyURL string) ClientOption {
	return func(c *clientConfig) error {
		if proxyURL == "" {
			return errors.New("proxy url must not be empty")
		}
		c.proxyURL = proxyURL
		return nil
	}
}
