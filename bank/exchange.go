package bank

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/credlink/openbank-credit/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultExchangeTimeout bounds a token request so an unresponsive endpoint
// surfaces as a TransportError rather than hanging the caller.
const DefaultExchangeTimeout = 15 * time.Second

const maxResponseBody = 1 << 20 // 1 MiB

// ExchangeClient performs the authorization-code to token exchange against
// the bank's token endpoint, authenticated by mutual TLS and a signed client
// assertion. Exactly one exchange attempt per call: authorization codes are
// single-use, so retries are the caller's decision.
type ExchangeClient struct {
	tokenEndpoint string
	httpClient    *http.Client
	expiryBuffer  time.Duration
	nowTime       func() time.Time
	logger        zerolog.Logger
}

// ExchangeOption configures the client.
type ExchangeOption func(*ExchangeClient)

// WithTLSConfig installs the mutual-TLS client configuration on the
// underlying transport.
func WithTLSConfig(cfg *tls.Config) ExchangeOption {
	return func(c *ExchangeClient) {
		c.httpClient.Transport = &http.Transport{TLSClientConfig: cfg}
	}
}

// WithHTTPClient replaces the HTTP client entirely (primarily for testing).
func WithHTTPClient(client *http.Client) ExchangeOption {
	return func(c *ExchangeClient) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) ExchangeOption {
	return func(c *ExchangeClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithExpiryBuffer sets the safety buffer subtracted from token lifetimes.
func WithExpiryBuffer(buffer time.Duration) ExchangeOption {
	return func(c *ExchangeClient) {
		c.expiryBuffer = buffer
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ExchangeOption {
	return func(c *ExchangeClient) {
		c.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ExchangeOption {
	return func(c *ExchangeClient) {
		c.nowTime = nowFunc
	}
}

// NewExchangeClient creates a client for the given token endpoint.
func NewExchangeClient(tokenEndpoint string, opts ...ExchangeOption) *ExchangeClient {
	c := &ExchangeClient{
		tokenEndpoint: tokenEndpoint,
		httpClient: &http.Client{
			Timeout: DefaultExchangeTimeout,
		},
		expiryBuffer: 60 * time.Second,
		nowTime:      time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenEndpointResponse is the wire shape of a successful token response.
type tokenEndpointResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// Exchange redeems an authorization code for a token set. The PKCE binding
// is verified locally before any network traffic: a verifier that does not
// hash to the request's challenge fails with ErrVerifierMismatch and never
// produces a TokenSet.
func (c *ExchangeClient) Exchange(ctx context.Context, code string, req *AuthorizationRequest) (*TokenSet, error) {
	if code == "" {
		return nil, errors.New("[ExchangeClient.Exchange] authorization code is required")
	}
	if req == nil {
		return nil, errors.New("[ExchangeClient.Exchange] authorization request is required")
	}
	if !req.VerifierMatches() {
		return nil, errors.Wrap(ErrVerifierMismatch, "[ExchangeClient.Exchange] PKCE binding check")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("scope", req.Scope)
	form.Set("code", code)
	form.Set("redirect_uri", req.RedirectURI)
	form.Set("code_verifier", req.CodeVerifier)
	form.Set("client_assertion_type", credentials.AssertionType)
	form.Set("client_assertion", req.ClientAssertion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeClient.Exchange] failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("endpoint", c.tokenEndpoint).Msg("exchanging authorization code")

	issuedAt := c.nowTime()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenEndpointResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &ResponseShapeError{Missing: "valid JSON body", Body: string(body)}
	}
	if tr.AccessToken == "" {
		return nil, &ResponseShapeError{Missing: "access_token", Body: string(body)}
	}
	if tr.ExpiresIn <= 0 {
		return nil, &ResponseShapeError{Missing: "expires_in", Body: string(body)}
	}

	ts := NewTokenSet(tr.AccessToken, tr.IDToken, tr.RefreshToken, issuedAt, tr.ExpiresIn, c.expiryBuffer)

	c.logger.Info().
		Time("expires_at", ts.ExpiresAt).
		Bool("refresh_token", ts.RefreshToken != "").
		Msg("authorization code exchanged")

	return &ts, nil
}
