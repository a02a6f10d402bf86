package smarther

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the client's managed grant to the standard
// oauth2.TokenSource interface, so the Smarther credentials can feed other
// HTTP stacks. Each Token call goes through the same refresh path as the
// device operations, including refresh deduplication.
func (c *AuthorizedClient) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &grantTokenSource{ctx: ctx, client: c}
}

type grantTokenSource struct {
	ctx    context.Context
	client *AuthorizedClient
}

func (s *grantTokenSource) Token() (*oauth2.Token, error) {
	if _, err := s.client.bearer(s.ctx); err != nil {
		return nil, err
	}

	info := s.client.AuthorizationInfo()
	return &oauth2.Token{
		AccessToken:  info.Grant.AccessToken(),
		RefreshToken: info.Grant.RefreshToken(),
		Expiry:       info.Grant.ExpiresAt(),
		TokenType:    "Bearer",
	}, nil
}
