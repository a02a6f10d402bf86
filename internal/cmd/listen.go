package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/auth/legrand"
	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/internal/receiver"
	"github.com/casaops/go-smarther/internal/watcher"
	"github.com/casaops/go-smarther/sdk/smarther"
)

// DoListen runs the cloud-to-client notification receiver until interrupted.
// It registers webhooks for the configured plants, watches the authorization
// file so a re-login in another terminal takes effect without a restart, and
// shuts down gracefully on SIGINT or SIGTERM.
//
// Parameters:
//   - cfg: The application configuration
func DoListen(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := buildSinks(ctx, cfg.Receiver)
	if err != nil {
		log.Errorf("failed to set up event sinks: %v", err)
		return
	}

	r := receiver.New(cfg.Receiver, sinks...)

	withAuthorizedClientContext(ctx, cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		registerConfiguredPlants(ctx, cfg, client)

		tokenPath, errPath := tokenFilePath(cfg)
		if errPath != nil {
			return errPath
		}
		w, errWatch := watcher.NewWatcher(tokenPath, func(data []byte) {
			info, errParse := legrand.ParseAuthorization(data)
			if errParse != nil {
				log.Warnf("ignoring invalid authorization file: %v", errParse)
				return
			}
			client.UpdateAuthorization(*info)
			log.Info("credentials reloaded")
		})
		if errWatch != nil {
			log.Warnf("credential hot reload unavailable: %v", errWatch)
		} else if errStart := w.Start(ctx); errStart != nil {
			log.Warnf("credential hot reload unavailable: %v", errStart)
		} else {
			defer func() { _ = w.Stop() }()
		}

		return r.Run(ctx)
	})
}

// buildSinks constructs the optional persistence sinks enabled by the
// configuration. The receiver logs every event regardless.
func buildSinks(ctx context.Context, cfg config.ReceiverConfig) ([]receiver.Sink, error) {
	var sinks []receiver.Sink
	if cfg.Postgres.DSN != "" {
		sink, err := receiver.NewPostgresSink(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Archive.Endpoint != "" {
		sink, err := receiver.NewObjectSink(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("object archive sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

// registerConfiguredPlants subscribes the receiver's public URL to every plant
// listed in the configuration. Failures are logged per plant so one broken
// subscription does not keep the receiver from starting.
func registerConfiguredPlants(ctx context.Context, cfg *config.Config, client *smarther.AuthorizedClient) {
	if len(cfg.Receiver.Plants) == 0 {
		return
	}
	if cfg.Receiver.PublicURL == "" {
		log.Warn("receiver.plants is set but receiver.public-url is empty, skipping webhook registration")
		return
	}
	for _, plantID := range cfg.Receiver.Plants {
		info, err := client.RegisterWebhook(ctx, plantID, cfg.Receiver.PublicURL)
		if err != nil {
			log.Errorf("failed to register webhook for plant %s: %v", plantID, err)
			continue
		}
		log.Infof("registered webhook for plant %s: subscription %s", plantID, info.SubscriptionID)
	}
}
