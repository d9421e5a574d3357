package models

import (
	"strings"
	"testing"
	"time"
)

func TestBankTransactionMemo(t *testing.T) {
	tests := []struct {
		name        string
		comment     string
		description string
		want        string
	}{
		{"both fields", "pay ABC123", "from taxi", "pay ABC123 from taxi"},
		{"comment only", "ABC123", "", "ABC123 "},
		{"description only", "", "ABC123", " ABC123"},
		{"both empty", "", "", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &BankTransaction{Comment: tt.comment, Description: tt.description}
			if got := tx.Memo(); got != tt.want {
				t.Errorf("Memo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBankTransactionValidate(t *testing.T) {
	valid := &BankTransaction{ID: "tx-1", Time: 1700000000, Amount: -5000}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid transaction, got %v", err)
	}

	tests := []struct {
		name string
		tx   BankTransaction
	}{
		{"empty id", BankTransaction{ID: "  ", Time: 1700000000}},
		{"zero time", BankTransaction{ID: "tx-1"}},
		{"negative time", BankTransaction{ID: "tx-1", Time: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tx.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestCreditedPaymentValidate(t *testing.T) {
	valid := &CreditedPayment{TxID: "tx-1", UserID: 7, AmountKop: 5000, CreditedCr: 500}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid payment, got %v", err)
	}

	tests := []struct {
		name    string
		payment CreditedPayment
	}{
		{"empty txId", CreditedPayment{UserID: 7}},
		{"zero userId", CreditedPayment{TxID: "tx-1"}},
		{"negative amount", CreditedPayment{TxID: "tx-1", UserID: 7, AmountKop: -1}},
		{"negative credit", CreditedPayment{TxID: "tx-1", UserID: 7, CreditedCr: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.payment.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestBankTransactionString(t *testing.T) {
	tx := &BankTransaction{ID: "tx-1", Amount: -5000, Time: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).Unix()}
	s := tx.String()
	if !strings.Contains(s, "tx-1") || !strings.Contains(s, "-5000") {
		t.Errorf("unexpected String(): %s", s)
	}
}

func TestNotFound(t *testing.T) {
	out := NotFound("payment not found")
	if out.Found {
		t.Error("NotFound outcome should have Found=false")
	}
	if out.Reason != "payment not found" {
		t.Errorf("unexpected reason: %s", out.Reason)
	}
}
