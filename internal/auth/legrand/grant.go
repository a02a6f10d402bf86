package legrand

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// GrantKind identifies the variant held by a Grant.
type GrantKind int

const (
	// GrantNone means no authorization material is held.
	GrantNone GrantKind = iota
	// GrantPendingCode means an authorization code was obtained interactively
	// but has not yet been exchanged for tokens.
	GrantPendingCode
	// GrantToken means a live access/refresh token pair is held.
	GrantToken
)

// String returns the name of the grant kind.
func (k GrantKind) String() string {
	switch k {
	case GrantNone:
		return "none"
	case GrantPendingCode:
		return "pending_code"
	case GrantToken:
		return "token"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Grant is the union of possible authorization materials: nothing, a pending
// authorization code, or a live token pair. The zero value holds nothing.
//
// Grants are immutable values; operations that change authorization state
// return a new Grant.
type Grant struct {
	kind GrantKind

	code  string
	nonce string

	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NoGrant returns a grant holding no authorization material.
func NoGrant() Grant {
	return Grant{kind: GrantNone}
}

// PendingCodeGrant returns a grant holding an authorization code awaiting
// exchange, together with the CSRF nonce minted for its handshake.
func PendingCodeGrant(code, nonce string) Grant {
	return Grant{kind: GrantPendingCode, code: code, nonce: nonce}
}

// TokenGrant returns a grant holding a live access/refresh token pair that
// expires at the given time.
func TokenGrant(accessToken, refreshToken string, expiresAt time.Time) Grant {
	return Grant{
		kind:         GrantToken,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
	}
}

// Kind returns the variant held by the grant.
func (g Grant) Kind() GrantKind { return g.kind }

// AccessCode returns the pending authorization code, or "" for other variants.
func (g Grant) AccessCode() string { return g.code }

// Nonce returns the CSRF nonce minted for the pending code's handshake, or ""
// for other variants.
func (g Grant) Nonce() string { return g.nonce }

// AccessToken returns the held access token, or "" for other variants.
func (g Grant) AccessToken() string { return g.accessToken }

// RefreshToken returns the held refresh token, or "" for other variants.
func (g Grant) RefreshToken() string { return g.refreshToken }

// ExpiresAt returns the access token's expiry time, or the zero time for
// other variants.
func (g Grant) ExpiresAt() time.Time { return g.expiresAt }

// IsValid reports whether the grant holds an access token that is still valid
// at the given instant. A token expiring exactly at now is no longer valid.
func (g Grant) IsValid(now time.Time) bool {
	return g.kind == GrantToken && g.expiresAt.After(now)
}

// NeedsRefresh reports whether the grant cannot authenticate a request at the
// given instant. True for every variant except a Token that is still valid.
func (g Grant) NeedsRefresh(now time.Time) bool {
	return !g.IsValid(now)
}

// BearerToken returns the access token when the grant is valid at the given
// instant, and ErrNoValidToken otherwise.
func (g Grant) BearerToken(now time.Time) (string, error) {
	if !g.IsValid(now) {
		return "", ErrNoValidToken
	}
	return g.accessToken, nil
}

type pendingCodeJSON struct {
	AccessCode string `json:"access_code"`
	Nonce      string `json:"nonce,omitempty"`
}

type tokenJSON struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresOn    int64  `json:"expires_on"`
}

// MarshalJSON encodes the grant in its persisted form: null for no grant, an
// access_code object for a pending code, and an access_token object with a
// Unix-seconds expires_on for a token pair.
func (g Grant) MarshalJSON() ([]byte, error) {
	switch g.kind {
	case GrantNone:
		return []byte("null"), nil
	case GrantPendingCode:
		return json.Marshal(pendingCodeJSON{AccessCode: g.code, Nonce: g.nonce})
	case GrantToken:
		return json.Marshal(tokenJSON{
			AccessToken:  g.accessToken,
			RefreshToken: g.refreshToken,
			ExpiresOn:    g.expiresAt.Unix(),
		})
	default:
		return nil, fmt.Errorf("marshal grant: unknown kind %d", int(g.kind))
	}
}

// UnmarshalJSON decodes a persisted grant, recognizing the variant by its
// fields rather than a tag.
func (g *Grant) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*g = NoGrant()
		return nil
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("unmarshal grant: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.Get("access_token").Exists():
		expiresOn := root.Get("expires_on").Int()
		*g = TokenGrant(
			root.Get("access_token").String(),
			root.Get("refresh_token").String(),
			time.Unix(expiresOn, 0),
		)
		return nil
	case root.Get("access_code").Exists():
		*g = PendingCodeGrant(root.Get("access_code").String(), root.Get("nonce").String())
		return nil
	default:
		return fmt.Errorf("unmarshal grant: unrecognized encoding: %s", trimmed)
	}
}

// AuthorizationInfo bundles a grant with the client credentials needed to
// exchange or refresh it. It is the unit callers persist between sessions.
type AuthorizationInfo struct {
	Grant           Grant  `json:"grant"`
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	SubscriptionKey string `json:"subscription_key"`
}

// NeedsRefresh reports whether the held grant cannot authenticate a request
// at the given instant.
func (a *AuthorizationInfo) NeedsRefresh(now time.Time) bool {
	return a.Grant.NeedsRefresh(now)
}
