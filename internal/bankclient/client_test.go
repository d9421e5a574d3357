package bankclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/errors"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL:      baseURL,
		Token:        "test-token-1234",
		CurrencyCode: 980,
		FetchTimeout: 2 * time.Second,
	})
}

func clientInfoHandler(t *testing.T, info ClientInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "test-token-1234" {
			t.Errorf("expected token header, got %q", r.Header.Get("X-Token"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}

func TestListCandidateAccounts(t *testing.T) {
	info := ClientInfo{
		Name: "Test Client",
		Accounts: []Account{
			{ID: "acc-uah", CurrencyCode: 980},
			{ID: "acc-usd", CurrencyCode: 840},
			{ID: "acc-uah-2", CurrencyCode: 980},
		},
		Jars: []Jar{
			{ID: "jar-1", SendID: "send-1"},
			{ID: "jar-1", SendID: "acc-uah"}, // duplicates must collapse
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientInfoHandler(t, info)(w, r)
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).ListCandidateAccounts(context.Background())

	want := []string{"acc-uah", "acc-uah-2", "jar-1", "send-1"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %v", len(want), len(got), got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("candidate %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestListCandidateAccountsFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "forbidden", http.StatusForbidden)
			},
		},
		{
			name: "non-JSON content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html>oops</html>"))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte("{not json"))
			},
		},
		{
			name: "empty result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"name":"Empty","accounts":[],"jars":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got := newTestClient(srv.URL).ListCandidateAccounts(context.Background())
			if len(got) != 1 || got[0].ID != models.DefaultAccountID {
				t.Errorf("expected fallback to default account, got %v", got)
			}
		})
	}
}

func TestListCandidateAccountsUnreachableServer(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	got := c.ListCandidateAccounts(context.Background())
	if len(got) != 1 || got[0].ID != models.DefaultAccountID {
		t.Errorf("expected fallback to default account, got %v", got)
	}
}

func TestFetchStatement(t *testing.T) {
	txs := []models.BankTransaction{
		{ID: "tx-1", Time: 100, Comment: "pay ABC123 thanks", Amount: -5000},
		{ID: "tx-2", Time: 200, Description: "ABC123 second", Amount: -7000},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/personal/statement/acc-1/100/200" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(txs)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchStatement(context.Background(), "acc-1", 100, 200)
	if err != nil {
		t.Fatalf("FetchStatement failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "tx-1" || got[1].Amount != -7000 {
		t.Errorf("unexpected statement: %v", got)
	}
}

func TestFetchStatementErrorsAreTransient(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    errors.Code
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
			},
			code: errors.CodeBadStatus,
		},
		{
			name: "non-JSON content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("rate limited"))
			},
			code: errors.CodeBadContentType,
		},
		{
			name: "parses to non-array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"errorDescription":"oops"}`))
			},
			code: errors.CodeMalformedBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL).FetchStatement(context.Background(), "0", 100, 200)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.IsTransient(err) {
				t.Errorf("expected a transient network error, got %v", err)
			}
			if e, ok := errors.AsError(err); !ok || e.Code != tt.code {
				t.Errorf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestFetchStatementTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "t", FetchTimeout: 50 * time.Millisecond})
	_, err := c.FetchStatement(context.Background(), "0", 100, 200)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !errors.IsTransient(err) {
		t.Errorf("timeouts must be transient, got %v", err)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		c.FetchStatement(context.Background(), "0", 100, 200)
	}

	_, err := c.FetchStatement(context.Background(), "0", 100, 200)
	if err == nil {
		t.Fatal("expected an error with the breaker open")
	}
	e, ok := errors.AsError(err)
	if !ok || e.Code != errors.CodeCircuitOpen {
		t.Errorf("expected circuit_open, got %v", err)
	}
	if !errors.IsTransient(err) {
		t.Error("open breaker must still be a transient, skippable failure")
	}
}

func TestTokenTail(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"test-token-1234", "1234"},
		{"abcd", "abcd"},
		{"ab", "ab"},
		{"", ""},
	}

	for _, tt := range tests {
		c := New(Config{Token: tt.token})
		if got := c.TokenTail(); got != tt.want {
			t.Errorf("TokenTail(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestHasToken(t *testing.T) {
	if New(Config{Token: "  "}).HasToken() {
		t.Error("whitespace token should not count as configured")
	}
	if !New(Config{Token: "x"}).HasToken() {
		t.Error("expected HasToken to be true")
	}
}
