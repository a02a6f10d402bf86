package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/auth/legrand"
	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/sdk/smarther"
)

// LoginOptions contains options for the interactive login flow.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// CallbackPort overrides the loopback callback port when set (>0).
	CallbackPort int
}

// DoLogin runs the interactive authorization handshake against the partner
// portal and saves the resulting grant to the configured token file.
//
// Parameters:
//   - cfg: The application configuration carrying the portal credentials
//   - options: Login options including browser behavior
func DoLogin(cfg *config.Config, options *LoginOptions) {
	if options == nil {
		options = &LoginOptions{}
	}
	if options.CallbackPort > 0 {
		cfg.Callback.Port = options.CallbackPort
	}

	client, err := newClient(cfg)
	if err != nil {
		log.Errorf("failed to build client: %v", err)
		return
	}

	loginOpts := &smarther.LoginOptions{NoBrowser: options.NoBrowser}
	if options.NoBrowser {
		loginOpts.OnAuthURL = func(authURL string) {
			fmt.Printf("Visit the following URL to continue authorization:\n%s\n", authURL)
			if errCopy := clipboard.WriteAll(authURL); errCopy == nil {
				fmt.Println("The URL has been copied to your clipboard.")
			}
		}
	}

	creds := smarther.Credentials{
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		SubscriptionKey: cfg.SubscriptionKey,
	}

	info, err := client.Login(context.Background(), creds, loginOpts)
	if err != nil {
		var authErr *legrand.AuthenticationError
		if errors.As(err, &authErr) {
			log.Error(legrand.GetUserFriendlyMessage(authErr))
			if authErr.Type == legrand.ErrPortInUse.Type {
				os.Exit(legrand.ErrPortInUse.Code)
			}
			return
		}
		log.Errorf("Smarther authorization failed: %v", err)
		return
	}

	tokenPath, err := tokenFilePath(cfg)
	if err != nil {
		log.Errorf("failed to resolve token file path: %v", err)
		return
	}
	if err = info.SaveTokenToFile(tokenPath); err != nil {
		log.Errorf("failed to save authorization: %v", err)
		return
	}

	fmt.Printf("Authorization saved to %s\n", tokenPath)
	fmt.Println("Smarther authorization successful!")
}
