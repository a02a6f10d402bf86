// Package cmd implements the operations behind the smarther command line
// flags: interactive login, device queries, thermostat control, webhook
// management, the notification receiver, and the dashboard.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/auth/legrand"
	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/internal/util"
	"github.com/casaops/go-smarther/sdk/smarther"
)

// newClient builds an SDK client from the application configuration.
func newClient(cfg *config.Config) (*smarther.Client, error) {
	opts := []smarther.ClientOption{
		smarther.WithCallbackAddress(cfg.Callback.Host, cfg.Callback.Port),
	}
	if cfg.APIURL != "" {
		opts = append(opts, smarther.WithAPIURL(cfg.APIURL))
	}
	if cfg.AuthURL != "" || cfg.TokenURL != "" {
		authURL := cfg.AuthURL
		if authURL == "" {
			authURL = legrand.DefaultAuthURL
		}
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = legrand.DefaultTokenURL
		}
		opts = append(opts, smarther.WithAuthEndpoints(authURL, tokenURL))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, smarther.WithProxy(cfg.ProxyURL))
	}
	return smarther.NewClient(opts...)
}

// tokenFilePath resolves the configured token file path, expanding a leading
// tilde.
func tokenFilePath(cfg *config.Config) (string, error) {
	return util.ResolvePath(cfg.TokenFile)
}

// grantChanged reports whether a grant's token material differs. Refreshes
// always rotate the access token, so field comparison is enough.
func grantChanged(before, after legrand.Grant) bool {
	return before.Kind() != after.Kind() ||
		before.AccessToken() != after.AccessToken() ||
		before.RefreshToken() != after.RefreshToken()
}

// withAuthorizedClient loads the persisted authorization, resumes it
// (refreshing the grant when needed), persists refreshed material back to the
// token file, and runs fn with the authorized client. Errors are reported to
// the user; nothing is returned.
func withAuthorizedClient(cfg *config.Config, fn func(ctx context.Context, client *smarther.AuthorizedClient) error) {
	withAuthorizedClientContext(context.Background(), cfg, fn)
}

// withAuthorizedClientContext is withAuthorizedClient with a caller-supplied
// context, for long-running commands tied to signal handling.
func withAuthorizedClientContext(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, client *smarther.AuthorizedClient) error) {
	tokenPath, err := tokenFilePath(cfg)
	if err != nil {
		log.Errorf("failed to resolve token file path: %v", err)
		return
	}

	info, err := legrand.LoadTokenFromFile(tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No saved authorization found at %s. Run with -login first.\n", tokenPath)
			return
		}
		log.Errorf("failed to load authorization: %v", err)
		return
	}

	client, err := newClient(cfg)
	if err != nil {
		log.Errorf("failed to build client: %v", err)
		return
	}

	authorized, err := client.Resume(ctx, info)
	if err != nil {
		reportError("resume authorization", err)
		return
	}

	persisted := authorized.AuthorizationInfo()
	if grantChanged(info.Grant, persisted.Grant) {
		if errSave := persisted.SaveTokenToFile(tokenPath); errSave != nil {
			log.Warnf("failed to persist refreshed authorization: %v", errSave)
		}
	}

	runErr := fn(ctx, authorized)

	// An operation may have refreshed the token mid flight; keep the saved
	// file current either way.
	final := authorized.AuthorizationInfo()
	if grantChanged(persisted.Grant, final.Grant) {
		if errSave := final.SaveTokenToFile(tokenPath); errSave != nil {
			log.Warnf("failed to persist refreshed authorization: %v", errSave)
		}
	}

	if runErr != nil {
		reportError("operation", runErr)
	}
}

// reportError prints a failure in user terms. Authentication failures get the
// friendly message; the port-in-use case exits with its dedicated code so
// scripts can react.
func reportError(operation string, err error) {
	var authErr *legrand.AuthenticationError
	if errors.As(err, &authErr) {
		log.Error(legrand.GetUserFriendlyMessage(authErr))
		if authErr.Type == legrand.ErrPortInUse.Type {
			os.Exit(legrand.ErrPortInUse.Code)
		}
		return
	}
	var apiErr *smarther.APIError
	if errors.As(err, &apiErr) {
		log.Errorf("%s failed: device API returned %s", operation, apiErr.Status)
		return
	}
	log.Errorf("%s failed: %v", operation, err)
}
