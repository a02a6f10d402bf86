package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/internal/logging"
	"github.com/casaops/go-smarther/internal/tui"
	"github.com/casaops/go-smarther/sdk/smarther"
)

// DoDashboard starts the interactive terminal dashboard. While the dashboard
// owns the terminal, log output is detached from stdout and shown in the
// dashboard's activity feed instead; the original streams are restored on
// exit.
//
// Parameters:
//   - cfg: The application configuration
func DoDashboard(cfg *config.Config) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		hook := tui.NewLogHook(2000, &logging.LogFormatter{})
		log.AddHook(hook)

		origStdout := os.Stdout
		origStderr := os.Stderr
		origLogOutput := log.StandardLogger().Out
		log.SetOutput(io.Discard)

		devNull, errOpenDevNull := os.Open(os.DevNull)
		if errOpenDevNull == nil {
			os.Stdout = devNull
			os.Stderr = devNull
		}

		restoreIO := func() {
			os.Stdout = origStdout
			os.Stderr = origStderr
			log.SetOutput(origLogOutput)
			if devNull != nil {
				_ = devNull.Close()
			}
		}

		errRun := tui.Run(client, hook, origStdout)
		restoreIO()
		if errRun != nil {
			fmt.Fprintf(os.Stderr, "dashboard error: %v\n", errRun)
		}
		return nil
	})
}
