package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payment-reconciliation-service/internal/bankclient"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/errors"
)

type fakeChecker struct {
	outcome  models.Outcome
	lastCode string
	panics   bool
}

func (f *fakeChecker) CheckByCode(ctx context.Context, rawCode string) models.Outcome {
	if f.panics {
		panic("boom")
	}
	f.lastCode = rawCode
	return f.outcome
}

type fakeBank struct {
	token string
	info  *bankclient.ClientInfo
	err   error
}

func (f *fakeBank) HasToken() bool { return f.token != "" }

func (f *fakeBank) TokenTail() string {
	if len(f.token) <= 4 {
		return f.token
	}
	return f.token[len(f.token)-4:]
}

func (f *fakeBank) ClientInfo(ctx context.Context) (*bankclient.ClientInfo, error) {
	return f.info, f.err
}

func newTestServer(checker Checker, bank BankDiagnostics) *Server {
	return New(checker, bank, DefaultConfig())
}

func TestHandleCheck(t *testing.T) {
	checker := &fakeChecker{outcome: models.Outcome{
		Found:      true,
		TxID:       "tx-1",
		UserID:     7,
		AmountKop:  5000,
		CreditedCr: 500,
		Credited:   true,
	}}
	srv := newTestServer(checker, &fakeBank{token: "secret-token"})

	req := httptest.NewRequest(http.MethodPost, "/payments/check", strings.NewReader(`{"code":"ABC123"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if checker.lastCode != "ABC123" {
		t.Errorf("checker received code %q, want ABC123", checker.lastCode)
	}

	var outcome models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !outcome.Found || outcome.TxID != "tx-1" || outcome.CreditedCr != 500 || !outcome.Credited {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestHandleCheckBadBody(t *testing.T) {
	srv := newTestServer(&fakeChecker{}, &fakeBank{})

	req := httptest.NewRequest(http.MethodPost, "/payments/check", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var outcome models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.Found || outcome.Reason == "" {
		t.Errorf("want found:false with a reason, got %+v", outcome)
	}
}

func TestHandleCheckPanicRecovers(t *testing.T) {
	srv := newTestServer(&fakeChecker{panics: true}, &fakeBank{})

	req := httptest.NewRequest(http.MethodPost, "/payments/check", strings.NewReader(`{"code":"ABC123"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var outcome models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.Found || outcome.Reason != "internal error" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestHandlePing(t *testing.T) {
	tests := []struct {
		name       string
		bank       *fakeBank
		wantOK     bool
		wantTail   string
		wantClient string
	}{
		{
			name:   "no token",
			bank:   &fakeBank{},
			wantOK: false,
		},
		{
			name: "token works",
			bank: &fakeBank{
				token: "secret-token",
				info:  &bankclient.ClientInfo{Name: "Taras Shevchenko"},
			},
			wantOK:     true,
			wantTail:   "oken",
			wantClient: "Taras Shevchenko",
		},
		{
			name: "client-info fails",
			bank: &fakeBank{
				token: "secret-token",
				err:   errors.NetworkError(errors.CodeBadStatus, "client-info", nil),
			},
			wantOK:   false,
			wantTail: "oken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeChecker{}, tt.bank)

			req := httptest.NewRequest(http.MethodGet, "/payments/bank/ping", nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp pingResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.OK != tt.wantOK {
				t.Errorf("ok = %v, want %v (reason %q)", resp.OK, tt.wantOK, resp.Reason)
			}
			if resp.Tail != tt.wantTail {
				t.Errorf("tail = %q, want %q", resp.Tail, tt.wantTail)
			}
			if resp.Client != tt.wantClient {
				t.Errorf("client = %q, want %q", resp.Client, tt.wantClient)
			}
			if !tt.wantOK && resp.Reason == "" {
				t.Error("failed ping should carry a reason")
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeChecker{}, &fakeBank{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&fakeChecker{}, &fakeBank{})

	t.Run("generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Header().Get("X-Request-Id") == "" {
			t.Error("response is missing X-Request-Id")
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-Id", "upstream-id")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-Id"); got != "upstream-id" {
			t.Errorf("X-Request-Id = %q, want upstream-id", got)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeChecker{}, &fakeBank{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_") {
		t.Error("metrics output looks empty")
	}
}
