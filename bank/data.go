package bank

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	dataClientTimeout    = 30 * time.Second
	defaultDataRateLimit = 5 // requests per second
)

// APIError represents an account data API error.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("account data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// DataClient fetches account data from the bank's read API using a
// session's access token. Requests are rate limited; the aggregate result
// is an AccountSnapshot consumed by the assessment engine.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
	nowTime    func() time.Time
}

// DataClientOption configures the client.
type DataClientOption func(*DataClient)

// WithDataTLSConfig installs the mutual-TLS client configuration.
func WithDataTLSConfig(cfg *tls.Config) DataClientOption {
	return func(c *DataClient) {
		c.httpClient.Transport = &http.Transport{TLSClientConfig: cfg}
	}
}

// WithDataHTTPClient replaces the HTTP client (primarily for testing).
func WithDataHTTPClient(client *http.Client) DataClientOption {
	return func(c *DataClient) {
		c.httpClient = client
	}
}

// WithDataRateLimit sets the request rate limit.
func WithDataRateLimit(requestsPerSecond int) DataClientOption {
	return func(c *DataClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithDataLogger sets the logger.
func WithDataLogger(logger zerolog.Logger) DataClientOption {
	return func(c *DataClient) {
		c.logger = logger
	}
}

// WithDataNowTime sets the now time function (primarily for testing).
func WithDataNowTime(nowFunc func() time.Time) DataClientOption {
	return func(c *DataClient) {
		c.nowTime = nowFunc
	}
}

// NewDataClient creates an account data client for the given base URL.
func NewDataClient(baseURL string, opts ...DataClientOption) *DataClient {
	c := &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: dataClientTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultDataRateLimit), defaultDataRateLimit),
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountsEnvelope struct {
	Data struct {
		Accounts []Account `json:"Account"`
	} `json:"Data"`
}

type balancesEnvelope struct {
	Data struct {
		Balances []struct {
			AccountID string `json:"AccountId"`
			Amount    struct {
				Amount   float64 `json:"Amount,string"`
				Currency string  `json:"Currency"`
			} `json:"Amount"`
		} `json:"Balance"`
	} `json:"Data"`
}

type transactionsEnvelope struct {
	Data struct {
		Transactions []struct {
			AccountID   string `json:"AccountId"`
			CreditDebit string `json:"CreditDebitIndicator"`
			BookingDate string `json:"BookingDateTime"`
			Information string `json:"TransactionInformation"`
			Amount      struct {
				Amount float64 `json:"Amount,string"`
			} `json:"Amount"`
		} `json:"Transaction"`
	} `json:"Data"`
}

type beneficiariesEnvelope struct {
	Data struct {
		Beneficiaries []struct {
			AccountID string `json:"AccountId"`
			Reference string `json:"Reference"`
		} `json:"Beneficiary"`
	} `json:"Data"`
}

// FetchSnapshot retrieves accounts, balances, transactions, and
// beneficiaries in one pass and aggregates them into a snapshot.
func (c *DataClient) FetchSnapshot(ctx context.Context, accessToken string) (*AccountSnapshot, error) {
	var accounts accountsEnvelope
	if err := c.get(ctx, "/accounts", accessToken, &accounts); err != nil {
		return nil, err
	}

	var balances balancesEnvelope
	if err := c.get(ctx, "/balances", accessToken, &balances); err != nil {
		return nil, err
	}

	var transactions transactionsEnvelope
	if err := c.get(ctx, "/transactions", accessToken, &transactions); err != nil {
		return nil, err
	}

	var beneficiaries beneficiariesEnvelope
	if err := c.get(ctx, "/beneficiaries", accessToken, &beneficiaries); err != nil {
		return nil, err
	}

	snapshot := &AccountSnapshot{
		Accounts:  accounts.Data.Accounts,
		FetchedAt: c.nowTime(),
	}
	for _, b := range balances.Data.Balances {
		snapshot.Balances = append(snapshot.Balances, Balance{
			AccountID: b.AccountID,
			Amount:    b.Amount.Amount,
			Currency:  b.Amount.Currency,
		})
	}
	for _, tx := range transactions.Data.Transactions {
		booked, err := time.Parse(time.RFC3339, tx.BookingDate)
		if err != nil {
			continue // unparseable booking dates are skipped, not fatal
		}
		snapshot.Transactions = append(snapshot.Transactions, Transaction{
			AccountID:   tx.AccountID,
			Amount:      tx.Amount.Amount,
			CreditDebit: tx.CreditDebit,
			BookingDate: booked,
			Description: tx.Information,
		})
	}
	for _, b := range beneficiaries.Data.Beneficiaries {
		snapshot.Beneficiaries = append(snapshot.Beneficiaries, Beneficiary{
			AccountID: b.AccountID,
			Name:      b.Reference,
		})
	}

	c.logger.Debug().
		Int("accounts", len(snapshot.Accounts)).
		Int("transactions", len(snapshot.Transactions)).
		Msg("account snapshot fetched")

	return snapshot, nil
}

// get performs a rate-limited bearer-authenticated GET request.
func (c *DataClient) get(ctx context.Context, path, accessToken string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
