package catalog

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
)

// tokenSourceAdapter adapts a driven.TokenProvider to
// oauth2.TokenSource so that standard oauth2 HTTP clients can reuse
// the cache's token management.
type tokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
// The returned source can be passed to oauth2.NewClient to get an
// http.Client that attaches the bearer token to every request.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &tokenSourceAdapter{provider: provider, ctx: ctx}
}

// Token implements oauth2.TokenSource.
func (t *tokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
