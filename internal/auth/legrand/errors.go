// Package legrand implements the OAuth2 authorization machinery for the
// Legrand/BTicino Smarther v2.0 cloud API. It covers the authorization grant
// model, the token endpoint exchange, and the transient loopback callback
// server used during the interactive authorization-code handshake.
package legrand

import (
	"errors"
	"fmt"
	"net/http"
)

// TokenEndpointError represents a non-success response from the token endpoint.
type TokenEndpointError struct {
	// Code is the OAuth error code reported by the endpoint, when present.
	Code string `json:"error"`
	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

// Error returns a string representation of the token endpoint error.
func (e *TokenEndpointError) Error() string {
	if e.Code != "" && e.Description != "" {
		return fmt.Sprintf("token endpoint returned %d: %s: %s", e.StatusCode, e.Code, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
}

// NewTokenEndpointError creates a token endpoint error for the given status
// code and optional OAuth error fields.
func NewTokenEndpointError(statusCode int, code, description string) *TokenEndpointError {
	return &TokenEndpointError{
		Code:        code,
		Description: description,
		StatusCode:  statusCode,
	}
}

// AuthenticationError represents authorization-related failures raised by the
// grant model, the callback coordinator, and the typestate client.
type AuthenticationError struct {
	// Type is the machine-readable kind of authentication error.
	Type string `json:"type"`
	// Message is a human-readable message describing the error.
	Message string `json:"message"`
	// Code is the HTTP status code (or exit code) associated with the error.
	Code int `json:"code"`
	// Cause is the underlying error, when one exists.
	Cause error `json:"-"`
}

// Error returns a string representation of the authentication error.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Common authentication error values. Use NewAuthenticationError to attach a
// cause; compare via the Type field after errors.AsType.
var (
	// ErrNoValidToken indicates the current grant holds no usable access token.
	ErrNoValidToken = &AuthenticationError{
		Type:    "no_valid_token",
		Message: "No valid access token is available",
		Code:    http.StatusUnauthorized,
	}

	// ErrUnsupportedGrant indicates an exchange was attempted on a grant
	// variant that cannot be exchanged.
	ErrUnsupportedGrant = &AuthenticationError{
		Type:    "unsupported_grant",
		Message: "Grant variant cannot be exchanged for tokens",
		Code:    http.StatusBadRequest,
	}

	// ErrMalformedResponse indicates the token endpoint returned a body that
	// could not be decoded.
	ErrMalformedResponse = &AuthenticationError{
		Type:    "malformed_response",
		Message: "Token endpoint response could not be decoded",
		Code:    http.StatusBadGateway,
	}

	// ErrAuthorizationRejected indicates the authorization callback carried a
	// mismatched state parameter or no authorization code.
	ErrAuthorizationRejected = &AuthenticationError{
		Type:    "authorization_rejected",
		Message: "Authorization callback was rejected",
		Code:    http.StatusBadRequest,
	}

	// ErrListenerFailed indicates the local callback server could not be
	// started or failed while waiting for the callback.
	ErrListenerFailed = &AuthenticationError{
		Type:    "listener_failed",
		Message: "Local callback server failed",
		Code:    http.StatusInternalServerError,
	}

	// ErrPortInUse indicates the callback port is already bound.
	ErrPortInUse = &AuthenticationError{
		Type:    "port_in_use",
		Message: "Callback port is already in use",
		Code:    13, // Special exit code for port-in-use
	}

	// ErrInvalidGrant indicates a resumed grant was still unusable after an
	// attempted exchange.
	ErrInvalidGrant = &AuthenticationError{
		Type:    "invalid_grant",
		Message: "Authorization grant is not usable and could not be refreshed",
		Code:    http.StatusUnauthorized,
	}
)

// NewAuthenticationError creates a new authentication error from a base error,
// attaching the given cause.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Code:    baseErr.Code,
		Cause:   cause,
	}
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// IsTokenEndpointError checks if an error is a token endpoint error.
func IsTokenEndpointError(err error) bool {
	var tokenEndpointError *TokenEndpointError
	return errors.As(err, &tokenEndpointError)
}

// IsListenerError reports whether an error originated from the local callback
// server, including the port-in-use case.
func IsListenerError(err error) bool {
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Type == ErrListenerFailed.Type || authErr.Type == ErrPortInUse.Type
}

// GetUserFriendlyMessage returns a short message suitable for end users.
func GetUserFriendlyMessage(err error) string {
	switch {
	case IsAuthenticationError(err):
		var authErr *AuthenticationError
		errors.As(err, &authErr)
		switch authErr.Type {
		case "no_valid_token":
			return "Your authorization has expired. Please log in again."
		case "invalid_grant":
			return "Your saved authorization is no longer usable. Please log in again."
		case "authorization_rejected":
			return "The authorization attempt was rejected. Please try again."
		case "port_in_use":
			return "The callback port is already in use. Close the application using it and try again."
		case "listener_failed":
			return "The local callback server could not be started. Please try again."
		default:
			return "Authorization failed. Please try again."
		}
	case IsTokenEndpointError(err):
		var tokenErr *TokenEndpointError
		errors.As(err, &tokenErr)
		switch tokenErr.Code {
		case "access_denied":
			return "Authorization was cancelled or denied."
		case "invalid_request":
			return "Invalid authorization request. Please try again."
		default:
			return fmt.Sprintf("The token endpoint rejected the request (HTTP %d).", tokenErr.StatusCode)
		}
	default:
		return "An unexpected error occurred. Please try again."
	}
}
