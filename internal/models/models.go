// Package models defines the domain types shared across the reconciliation
// service: bank statement transactions as reported by the banking API,
// candidate accounts, the persistent credited-payment ledger row, and the
// outcome shape returned to callers.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultAccountID is the sentinel account used when account discovery
// fails or yields nothing. The statement endpoint accepts it as "the
// default account", so discovery failures degrade gracefully instead of
// blocking the reconciliation.
const DefaultAccountID = "0"

// BankTransaction is a single statement entry as reported by the banking
// API. It is read-only: the service never mutates bank data.
//
// Amount is in minor currency units and follows the bank's sign
// convention, under which an inbound payment appears negative and must be
// negated before crediting.
type BankTransaction struct {
	ID          string `json:"id"`
	Time        int64  `json:"time"`
	Description string `json:"description"`
	Comment     string `json:"comment"`
	Amount      int64  `json:"amount"`
}

// Memo returns the free text a payer can embed a code in: the comment and
// description concatenated.
func (t *BankTransaction) Memo() string {
	return t.Comment + " " + t.Description
}

// Validate performs basic validation on the BankTransaction.
func (t *BankTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("bank transaction ID cannot be empty")
	}
	if t.Time <= 0 {
		return fmt.Errorf("bank transaction time must be positive")
	}
	return nil
}

// String returns a string representation of the BankTransaction.
func (t *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{ID: %s, Amount: %d, Time: %s}",
		t.ID, t.Amount, time.Unix(t.Time, 0).UTC().Format(time.RFC3339))
}

// CandidateAccount is one bank account or jar sub-account whose statement
// may contain the matching transaction.
type CandidateAccount struct {
	ID string `json:"id"`
}

// MatchResult pairs a matched transaction with the account it was found on.
type MatchResult struct {
	Transaction *BankTransaction
	AccountID   string
}

// CreditedPayment is the persistent ledger row recording a credit. TxID is
// the bank-assigned transaction identifier and doubles as the idempotency
// key: a row is created exactly once per distinct bank transaction and is
// never updated or deleted.
type CreditedPayment struct {
	TxID       string `json:"txId"`
	Code       string `json:"code"`
	AmountKop  int64  `json:"amountKop"`
	CreditedCr int64  `json:"creditedCr"`
	AccountID  string `json:"accountId"`
	TxTime     int64  `json:"txTime"`
	UserID     int64  `json:"userId"`
}

// Validate performs basic validation on the CreditedPayment.
func (p *CreditedPayment) Validate() error {
	if strings.TrimSpace(p.TxID) == "" {
		return fmt.Errorf("credited payment txId cannot be empty")
	}
	if p.UserID <= 0 {
		return fmt.Errorf("credited payment userId must be positive")
	}
	if p.AmountKop < 0 {
		return fmt.Errorf("credited payment amount cannot be negative")
	}
	if p.CreditedCr < 0 {
		return fmt.Errorf("credited payment credit units cannot be negative")
	}
	return nil
}

// User is an internal user who can receive credits. UniqueCode is the
// short token the user embeds in the payment memo; Balance is in credit
// units and only ever changes by relative increments.
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	UniqueCode string `json:"uniqueCode"`
	Balance    int64  `json:"balance"`
}

// Outcome is the business result of one reconciliation check. It is always
// rendered as HTTP 200; failure classes are communicated through Reason.
type Outcome struct {
	Found      bool   `json:"found"`
	Reason     string `json:"reason,omitempty"`
	TxID       string `json:"txId,omitempty"`
	UserID     int64  `json:"userId,omitempty"`
	AmountKop  int64  `json:"amountKop,omitempty"`
	CreditedCr int64  `json:"creditedCr,omitempty"`
	Credited   bool   `json:"credited,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// NotFound builds a failure outcome carrying only a reason.
func NotFound(reason string) Outcome {
	return Outcome{Found: false, Reason: reason}
}

// TrainingRequestStatus enumerates the lifecycle states of a training
// request that the expiry sweep cares about.
type TrainingRequestStatus string

const (
	// TrainingRequestPending marks a request still waiting for review.
	TrainingRequestPending TrainingRequestStatus = "pending"
	// TrainingRequestExpiredUnassigned marks a stale request flagged when
	// no instructors exist to penalize.
	TrainingRequestExpiredUnassigned TrainingRequestStatus = "expired_unassigned"
	// TrainingRequestExpiredPenalized marks a stale request whose penalty
	// was applied to the instructors.
	TrainingRequestExpiredPenalized TrainingRequestStatus = "expired_penalized"
)

// TrainingRequest is a position-training application. PositionCr is the
// credit value of the requested position, used to size the penalty when the
// request goes stale.
type TrainingRequest struct {
	ID          int64                 `json:"id"`
	ApplicantID int64                 `json:"applicantId"`
	PositionCr  int64                 `json:"positionCr"`
	Status      TrainingRequestStatus `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
}
