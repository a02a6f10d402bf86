package receiver

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/acme/autocert"

	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/internal/logging"
)

// Receiver is the notification endpoint. It accepts vendor posts on the
// configured path, stores them through the registered sinks, and relays them
// to websocket consumers.
type Receiver struct {
	cfg    config.ReceiverConfig
	engine *gin.Engine
	hub    *Hub
	sinks  []Sink
}

// New builds a receiver serving the given sinks. The log sink is always
// prepended so traffic is visible even with no persistence configured.
func New(cfg config.ReceiverConfig, sinks ...Sink) *Receiver {
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultReceiverListen
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultReceiverPath
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		cfg.Path = "/" + cfg.Path
	}

	r := &Receiver{
		cfg:   cfg,
		hub:   NewHub(),
		sinks: append([]Sink{LogSink{}}, sinks...),
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusRecovery(), logging.GinLogrusLogger())
	engine.POST(cfg.Path, r.handleNotification)
	engine.GET(cfg.Path+"/ws", func(c *gin.Context) {
		r.hub.HandleUpgrade(c.Writer, c.Request)
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.engine = engine
	return r
}

// Handler exposes the receiver's routes, mainly for tests.
func (r *Receiver) Handler() http.Handler {
	return r.engine
}

func (r *Receiver) handleNotification(c *gin.Context) {
	if r.cfg.Secret != "" {
		presented := c.GetHeader("X-Receiver-Secret")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(r.cfg.Secret)) != 1 {
			c.JSON(401, gin.H{"error": "unauthorized"})
			return
		}
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(400, gin.H{"error": "failed to read body"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(400, gin.H{"error": "body is not valid JSON"})
		return
	}

	// The vendor cloud posts either a single notification object or a batch.
	parsed := gjson.ParseBytes(body)
	var items []gjson.Result
	if parsed.IsArray() {
		items = parsed.Array()
	} else {
		items = []gjson.Result{parsed}
	}

	receivedAt := time.Now()
	accepted := 0
	for _, item := range items {
		event, errNorm := normalizeEvent([]byte(item.Raw), receivedAt)
		if errNorm != nil {
			log.WithError(errNorm).Warn("skipping malformed notification")
			continue
		}
		r.dispatch(c.Request.Context(), event)
		accepted++
	}

	c.JSON(200, gin.H{"accepted": accepted})
}

// dispatch stores the event in every sink and relays it to websocket
// consumers. Sink failures are logged, never surfaced to the vendor cloud.
func (r *Receiver) dispatch(ctx context.Context, event *Event) {
	for _, sink := range r.sinks {
		if err := sink.Store(ctx, event); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"sink":  sink.Name(),
				"event": event.ID,
			}).Warn("event sink failed")
		}
	}
	r.hub.Broadcast(event.Raw)
}

// Run serves until the context is cancelled, then shuts down gracefully and
// closes the sinks. With a domain configured certificates are obtained via
// Let's Encrypt; otherwise the receiver serves plain HTTP on the listen
// address.
func (r *Receiver) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              r.cfg.Listen,
		Handler:           r.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if r.cfg.Domain != "" {
			log.Infof("receiver serving HTTPS for %s", r.cfg.Domain)
			listener := autocert.NewListener(r.cfg.Domain)
			serveErr <- server.Serve(listener)
			return
		}
		log.Infof("receiver listening on %s", r.cfg.Listen)
		serveErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(stopCtx); err != nil {
			log.Errorf("receiver shutdown failed: %v", err)
		}
		<-serveErr
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	r.hub.Stop()
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			log.WithError(err).Warnf("failed to close %s sink", sink.Name())
		}
	}
	log.Info("receiver stopped")
	return runErr
}
