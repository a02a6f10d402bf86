package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/sdk/smarther"
)

// DoRegisterWebhook subscribes an HTTPS endpoint to cloud-to-client
// notifications for a plant. An empty endpoint URL falls back to the
// configured receiver public URL.
//
// Parameters:
//   - cfg: The application configuration
//   - plantID: The plant to subscribe to
//   - endpointURL: The HTTPS endpoint Legrand should deliver events to
func DoRegisterWebhook(cfg *config.Config, plantID, endpointURL string) {
	if endpointURL == "" {
		endpointURL = cfg.Receiver.PublicURL
	}
	if endpointURL == "" {
		log.Error("no endpoint URL given and receiver.public-url is not configured")
		return
	}
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		info, err := client.RegisterWebhook(ctx, plantID, endpointURL)
		if err != nil {
			return err
		}
		fmt.Printf("Webhook registered for plant %s: subscription %s -> %s\n", plantID, info.SubscriptionID, endpointURL)
		return nil
	})
}

// DoListWebhooks prints all active notification subscriptions.
func DoListWebhooks(cfg *config.Config) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		subscriptions, err := client.GetWebhooks(ctx)
		if err != nil {
			return err
		}
		if len(subscriptions) == 0 {
			fmt.Println("No active webhook subscriptions.")
			return nil
		}
		return printJSON(subscriptions)
	})
}

// DoUnregisterWebhook removes a notification subscription from a plant.
func DoUnregisterWebhook(cfg *config.Config, plantID, subscriptionID string) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		if err := client.UnregisterWebhook(ctx, plantID, subscriptionID); err != nil {
			return err
		}
		fmt.Printf("Webhook subscription %s removed from plant %s.\n", subscriptionID, plantID)
		return nil
	})
}
