package smarther

import (
	"github.com/casaops/go-smarther/internal/auth/legrand"
)

// Re-exported authorization types, so SDK consumers never import the internal
// package directly.
type (
	// Grant is the authorization material held for the account, in one of
	// three shapes: absent, a pending authorization code, or a token pair.
	Grant = legrand.Grant

	// GrantKind discriminates the three grant shapes.
	GrantKind = legrand.GrantKind

	// AuthorizationInfo bundles a grant with the application credentials that
	// obtained it. It is the unit of persistence between sessions.
	AuthorizationInfo = legrand.AuthorizationInfo

	// AuthenticationError is the error type returned by authorization and
	// token handling.
	AuthenticationError = legrand.AuthenticationError

	// TokenEndpointError reports a non-success response from the OAuth token
	// endpoint.
	TokenEndpointError = legrand.TokenEndpointError
)

// Grant shape constants.
const (
	GrantNone        = legrand.GrantNone
	GrantPendingCode = legrand.GrantPendingCode
	GrantToken       = legrand.GrantToken
)

// Grant constructors.
var (
	NoGrant    = legrand.NoGrant
	TokenGrant = legrand.TokenGrant
)

// Base authentication errors; compare with errors.As plus the Type field, or
// use the predicates below.
var (
	ErrNoValidToken          = legrand.ErrNoValidToken
	ErrUnsupportedGrant      = legrand.ErrUnsupportedGrant
	ErrMalformedResponse     = legrand.ErrMalformedResponse
	ErrAuthorizationRejected = legrand.ErrAuthorizationRejected
	ErrListenerFailed        = legrand.ErrListenerFailed
	ErrPortInUse             = legrand.ErrPortInUse
	ErrInvalidGrant          = legrand.ErrInvalidGrant
)

// Error classification helpers.
var (
	IsAuthenticationError = legrand.IsAuthenticationError
	IsTokenEndpointError  = legrand.IsTokenEndpointError
	IsListenerError       = legrand.IsListenerError

	// GetUserFriendlyMessage renders an authorization failure for end users.
	GetUserFriendlyMessage = legrand.GetUserFriendlyMessage
)

// AuthorizationInfo persistence helpers. Saving goes through the
// AuthorizationInfo.SaveTokenToFile method.
var (
	LoadAuthorization  = legrand.LoadTokenFromFile
	ParseAuthorization = legrand.ParseAuthorization
)
