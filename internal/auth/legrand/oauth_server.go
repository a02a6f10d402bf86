package legrand

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// callbackPath is the loopback route the partner portal redirects to after
// the user approves or denies the authorization request.
const callbackPath = "/tokens"

// DefaultCallbackHost and DefaultCallbackPort form the loopback address the
// partner portal application must be registered with.
const (
	DefaultCallbackHost = "localhost"
	DefaultCallbackPort = 23784
)

type callbackResult struct {
	code string
	err  error
}

// OAuthServer runs the transient loopback HTTP listener that receives the
// authorization-code redirect during an interactive handshake. Each server
// instance serves exactly one handshake attempt: it mints a fresh CSRF nonce
// at construction, accepts at most one callback delivery, and is torn down by
// the caller once the attempt resolves.
type OAuthServer struct {
	host  string
	port  int
	nonce string

	server    *http.Server
	result    chan callbackResult
	errChan   chan error
	mu        sync.Mutex
	running   bool
	delivered bool
}

// NewOAuthServer creates a callback server for the given loopback host and
// port, minting a single-use CSRF nonce for the attempt. An empty host falls
// back to DefaultCallbackHost; a zero port binds an ephemeral port on Start.
func NewOAuthServer(host string, port int) *OAuthServer {
	if host == "" {
		host = DefaultCallbackHost
	}
	return &OAuthServer{
		host:    host,
		port:    port,
		nonce:   uuid.NewString(),
		result:  make(chan callbackResult, 1),
		errChan: make(chan error, 1),
	}
}

// Nonce returns the CSRF nonce minted for this handshake attempt.
func (s *OAuthServer) Nonce() string {
	return s.nonce
}

// RedirectURI returns the loopback callback URL the partner portal redirects
// to after authorization.
func (s *OAuthServer) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(s.host, strconv.Itoa(s.port)), callbackPath)
}

// AuthorizationURL builds the browser-facing authorization URL, embedding the
// client identifier, the nonce as the state parameter, and the loopback
// redirect URI.
func (s *OAuthServer) AuthorizationURL(authURL, clientID string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", clientID)
	query.Set("state", s.nonce)
	query.Set("redirect_uri", s.RedirectURI())
	return authURL + "?" + query.Encode()
}

// Start binds the loopback listener and begins serving the callback route in
// the background. A port that is already bound fails with ErrPortInUse; any
// other bind failure fails with ErrListenerFailed. Failures after startup are
// reported through Wait.
func (s *OAuthServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return NewAuthenticationError(ErrListenerFailed, fmt.Errorf("callback server is already running"))
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return NewAuthenticationError(ErrPortInUse, err)
		}
		return NewAuthenticationError(ErrListenerFailed, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.running = true

	log.Debugf("authorization callback server listening on %s", addr)

	go func() {
		if serveErr := s.server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			select {
			case s.errChan <- serveErr:
			default:
			}
		}
	}()

	return nil
}

// Stop shuts down the callback server, releasing the listener. It is safe to
// call on a server that never started or already stopped.
func (s *OAuthServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	defer func() {
		s.running = false
		s.server = nil
	}()

	return s.server.Shutdown(ctx)
}

// Wait blocks until the handshake attempt resolves: a callback is delivered,
// the listener fails, or the context is cancelled. It returns the
// authorization code on success; a rejected callback yields
// ErrAuthorizationRejected and a listener failure ErrListenerFailed.
func (s *OAuthServer) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.result:
		return res.code, res.err
	case err := <-s.errChan:
		return "", NewAuthenticationError(ErrListenerFailed, err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// handleCallback serves the redirect from the partner portal. The first hit
// decides the attempt's outcome; later hits receive a distinct response and
// never alter the recorded result.
func (s *OAuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	s.mu.Lock()
	if s.delivered {
		s.mu.Unlock()
		log.Debug("authorization callback received after completion, ignoring")
		writePage(w, http.StatusGone, alreadyCompletedPage)
		return
	}
	s.delivered = true
	s.mu.Unlock()

	if code == "" || state != s.nonce {
		if code == "" {
			log.Debug("authorization callback carried no code")
		} else {
			log.Debug("authorization callback state does not match issued nonce")
		}
		s.deliver(callbackResult{err: NewAuthenticationError(ErrAuthorizationRejected, fmt.Errorf("callback state or code invalid"))})
		// The response carries no protocol meaning; the outcome travels
		// through the result channel. 200 either way.
		writePage(w, http.StatusOK, failurePage)
		return
	}

	s.deliver(callbackResult{code: code})
	writePage(w, http.StatusOK, successPage)
}

func (s *OAuthServer) deliver(res callbackResult) {
	select {
	case s.result <- res:
	default:
		log.Debug("callback result channel full, dropping result")
	}
}

func writePage(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
