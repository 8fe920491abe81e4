package bank

import (
	"strings"

	"golang.org/x/oauth2"
)

// AuthorizeURL builds the outbound redirect to the bank's authorization
// endpoint, carrying client_id, redirect_uri, scope, the PKCE challenge,
// and state.
func AuthorizeURL(authorizeEndpoint, clientID string, req *AuthorizationRequest) string {
	cfg := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: req.RedirectURI,
		Scopes:      strings.Fields(req.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL: authorizeEndpoint,
		},
	}
	return cfg.AuthCodeURL(req.State,
		oauth2.SetAuthURLParam("code_challenge", req.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}
