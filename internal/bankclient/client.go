// Package bankclient implements the read-only consumer of the banking HTTP
// API: candidate account discovery via the client-info endpoint and
// statement fetches by account and time range. Both calls authenticate with
// a static token header injected at construction.
//
// Failure philosophy: discovery failures are absorbed entirely (the caller
// gets the sentinel default account), and statement failures are returned as
// typed network errors that the reconciliation loop treats as "skip this
// candidate". The client never retries; a circuit breaker guards the
// upstream against repeated hammering when the bank API is down.
package bankclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"payment-reconciliation-service/internal/metrics"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"

	"github.com/sony/gobreaker"
)

const (
	clientInfoPath = "/personal/client-info"
	statementPath  = "/personal/statement"

	tokenHeader = "X-Token"
)

// Config holds the bank client configuration. Token is the static bearer
// credential; it is injected here rather than read from the environment
// inside the client, so tests can run against fake servers with fake
// credentials.
type Config struct {
	BaseURL      string
	Token        string
	CurrencyCode int           // operating currency to collect accounts for
	FetchTimeout time.Duration // per-call deadline for statement fetches
}

// DefaultConfig returns the client defaults: the public banking API,
// currency code 980 (UAH) and a 15 second statement timeout.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.monobank.ua",
		CurrencyCode: 980,
		FetchTimeout: 15 * time.Second,
	}
}

// ClientInfo is the subset of the client-info response the service uses.
type ClientInfo struct {
	Name     string    `json:"name"`
	Accounts []Account `json:"accounts"`
	Jars     []Jar     `json:"jars"`
}

// Account is one bank account from the client-info response.
type Account struct {
	ID           string `json:"id"`
	CurrencyCode int    `json:"currencyCode"`
}

// Jar is one jar sub-account from the client-info response. SendID is the
// alternate identifier payers use when topping a jar up, so statements may
// be filed under either.
type Jar struct {
	ID     string `json:"id"`
	SendID string `json:"sendId"`
}

// Client talks to the banking API. Safe for concurrent use.
type Client struct {
	config  Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

// New creates a bank API client from the given configuration.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.CurrencyCode == 0 {
		config.CurrencyCode = DefaultConfig().CurrencyCode
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultConfig().FetchTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "bank-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		config:  config,
		http:    &http.Client{},
		breaker: breaker,
		logger:  logger.WithComponent("bank_client"),
	}
}

// ClientInfo fetches the client-info document. Used by the diagnostic ping
// operation; account discovery goes through ListCandidateAccounts, which
// additionally absorbs failures.
func (c *Client) ClientInfo(ctx context.Context) (*ClientInfo, error) {
	body, err := c.get(ctx, c.config.BaseURL+clientInfoPath, "client-info")
	if err != nil {
		return nil, err
	}

	var info ClientInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.NetworkError(errors.CodeMalformedBody, clientInfoPath, err)
	}
	return &info, nil
}

// ListCandidateAccounts resolves the ordered set of account ids whose
// statements may contain the payment: every account in the operating
// currency, then every jar id and its send-id, deduplicated in first-seen
// order. On any failure or an empty result it returns the single sentinel
// default account: discovery must never block a direct statement fetch.
func (c *Client) ListCandidateAccounts(ctx context.Context) []models.CandidateAccount {
	fallback := []models.CandidateAccount{{ID: models.DefaultAccountID}}

	info, err := c.ClientInfo(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("account discovery failed, using default account")
		return fallback
	}

	var ids []string
	for _, acc := range info.Accounts {
		if acc.CurrencyCode == c.config.CurrencyCode && acc.ID != "" {
			ids = append(ids, acc.ID)
		}
	}
	for _, jar := range info.Jars {
		if jar.ID != "" {
			ids = append(ids, jar.ID)
		}
		if jar.SendID != "" {
			ids = append(ids, jar.SendID)
		}
	}

	seen := make(map[string]bool, len(ids))
	var accounts []models.CandidateAccount
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		accounts = append(accounts, models.CandidateAccount{ID: id})
	}

	if len(accounts) == 0 {
		c.logger.Debug("account discovery returned nothing, using default account")
		return fallback
	}

	c.logger.WithField("candidates", len(accounts)).Debug("resolved candidate accounts")
	return accounts
}

// FetchStatement fetches the statement for one account over the half-open
// window [from, to] in epoch seconds. The call is bounded by the configured
// fetch timeout and cancelled on expiry. Every returned error is a typed
// network error the caller may treat as a skippable candidate failure.
func (c *Client) FetchStatement(ctx context.Context, accountID string, from, to int64) ([]models.BankTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	url := fmt.Sprintf("%s%s/%s/%d/%d", c.config.BaseURL, statementPath, accountID, from, to)
	body, err := c.get(ctx, url, "statement")
	if err != nil {
		return nil, err
	}

	var txs []models.BankTransaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, errors.NetworkError(errors.CodeMalformedBody, statementPath, err).
			WithContext("account", accountID)
	}
	return txs, nil
}

// get issues one authenticated GET through the circuit breaker and returns
// the body when the response is 2xx JSON.
func (c *Client) get(ctx context.Context, url, endpoint string) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.NetworkError(errors.CodeRequestFailed, url, err)
		}
		req.Header.Set(tokenHeader, c.config.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			code := errors.CodeRequestFailed
			if ctx.Err() == context.DeadlineExceeded {
				code = errors.CodeRequestTimedOut
			}
			return nil, errors.NetworkError(code, url, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.NetworkError(errors.CodeRequestFailed, url, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.NetworkError(errors.CodeBadStatus, url, nil).
				WithContext("status", resp.Status)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
			return nil, errors.NetworkError(errors.CodeBadContentType, url, nil).
				WithContext("content_type", ct)
		}
		return body, nil
	})
	metrics.BankRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		metrics.BankRequestErrors.WithLabelValues(endpoint).Inc()
		return nil, errors.NetworkError(errors.CodeCircuitOpen, url, err)
	}
	if err != nil {
		metrics.BankRequestErrors.WithLabelValues(endpoint).Inc()
		return nil, err
	}
	return result.([]byte), nil
}

// TokenTail returns the last four characters of the configured token, for
// diagnostics that must not leak the credential.
func (c *Client) TokenTail() string {
	token := c.config.Token
	if len(token) <= 4 {
		return token
	}
	return token[len(token)-4:]
}

// HasToken reports whether a bank credential is configured.
func (c *Client) HasToken() bool {
	return strings.TrimSpace(c.config.Token) != ""
}
