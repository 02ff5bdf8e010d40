package marketplace

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Token adapts an oauth2.TokenSource. Tokens are cached and refreshed
// by the underlying source.
type OAuth2Token struct {
	source oauth2.TokenSource
}

// NewClientCredentials returns a token source for the client credentials grant.
func NewClientCredentials(tokenURL, clientID, clientSecret string, scopes []string) *OAuth2Token {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return &OAuth2Token{source: cfg.TokenSource(context.Background())}
}

func (t *OAuth2Token) Token(ctx context.Context) (string, error) {
	tok, err := t.source.Token()
	if err != nil {
		return "", fmt.Errorf("client credentials: %w", err)
	}
	return tok.AccessToken, nil
}
