// Package reconciler orchestrates one payment reconciliation: it validates
// the submitted code, drives the candidate-account loop against the bank
// statement, converts the matched amount into credit units and invokes the
// idempotent ledger credit.
//
// Each check is an independent unit of work. Nothing is cached between
// requests; correctness under concurrent or retried checks for the same
// bank transaction rests entirely on the ledger's idempotency key.
package reconciler

import (
	"context"
	"time"

	"payment-reconciliation-service/internal/ledger"
	"payment-reconciliation-service/internal/matcher"
	"payment-reconciliation-service/internal/metrics"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/normalize"
	"payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Reason strings surfaced to callers through the outcome shape.
const (
	ReasonTokenNotConfigured = "bank token is not configured"
	ReasonInvalidCode        = "code must be 6 characters (letters or digits)"
	ReasonPaymentNotFound    = "payment with this code was not found"
	ReasonUserNotFound       = "payment found, but no user matches the code"
)

// BankGateway is the slice of the bank client the orchestrator needs.
type BankGateway interface {
	HasToken() bool
	ListCandidateAccounts(ctx context.Context) []models.CandidateAccount
	FetchStatement(ctx context.Context, accountID string, from, to int64) ([]models.BankTransaction, error)
}

// Config holds reconciliation tuning.
type Config struct {
	// WindowHours is how far back the statement window reaches.
	WindowHours int
	// ExchangeDivisor converts minor currency units to credit units
	// (creditedCr = floor(amountKop / ExchangeDivisor)).
	ExchangeDivisor int64
}

// DefaultConfig returns the production defaults: a 120 hour window and a
// divisor of 10.
func DefaultConfig() Config {
	return Config{
		WindowHours:     120,
		ExchangeDivisor: 10,
	}
}

// Service performs reconciliation checks.
type Service struct {
	bank   BankGateway
	ledger ledger.Ledger
	users  ledger.UserFinder
	config Config
	logger logger.Logger
	now    func() time.Time
}

// New creates a reconciliation service.
func New(bank BankGateway, l ledger.Ledger, users ledger.UserFinder, config Config) *Service {
	if config.WindowHours <= 0 {
		config.WindowHours = DefaultConfig().WindowHours
	}
	if config.ExchangeDivisor <= 0 {
		config.ExchangeDivisor = DefaultConfig().ExchangeDivisor
	}
	return &Service{
		bank:   bank,
		ledger: l,
		users:  users,
		config: config,
		logger: logger.WithComponent("reconciler"),
		now:    time.Now,
	}
}

// CheckByCode reconciles the submitted code against the bank statement and
// credits the matching user at most once per bank transaction. Every
// failure class folds into the outcome's Reason; the method never returns
// an error and never panics outward.
func (s *Service) CheckByCode(ctx context.Context, rawCode string) models.Outcome {
	if !s.bank.HasToken() {
		metrics.ObserveCheck(metrics.OutcomeNotConfigured)
		return models.NotFound(ReasonTokenNotConfigured)
	}

	codeNorm := normalize.Code(rawCode)
	if len(codeNorm) != normalize.CodeLength {
		s.logger.WithField("code_norm", codeNorm).Debug("rejected malformed code")
		metrics.ObserveCheck(metrics.OutcomeInvalidCode)
		return models.NotFound(ReasonInvalidCode)
	}

	log := s.logger.WithField("code", codeNorm)
	log.WithField("window_hours", s.config.WindowHours).Info("checking code against bank statement")

	match := s.findMatch(ctx, codeNorm, log)
	if match == nil {
		metrics.ObserveCheck(metrics.OutcomeNotFound)
		return models.NotFound(ReasonPaymentNotFound)
	}

	amountKop := negatedAmount(match.Transaction.Amount)
	creditedCr := s.toCreditUnits(amountKop)

	// The recipient is resolved by the ORIGINAL submitted code: the user's
	// stored unique code may itself contain characters normalization would
	// strip.
	user, err := s.users.FindUserByCode(ctx, rawCode)
	if err != nil {
		log.WithError(err).Error("user lookup failed")
		metrics.ObserveCheck(metrics.OutcomeError)
		return models.NotFound(err.Error())
	}
	if user == nil {
		metrics.ObserveCheck(metrics.OutcomeNoRecipient)
		return models.Outcome{
			Found:      true,
			TxID:       match.Transaction.ID,
			AmountKop:  amountKop,
			CreditedCr: 0,
			Reason:     ReasonUserNotFound,
		}
	}

	result, err := s.ledger.CreditOnce(ctx, models.CreditedPayment{
		TxID:       match.Transaction.ID,
		Code:       rawCode,
		AmountKop:  amountKop,
		CreditedCr: creditedCr,
		AccountID:  match.AccountID,
		TxTime:     match.Transaction.Time,
		UserID:     user.ID,
	})
	if err != nil {
		log.WithError(err).Error("credit failed")
		metrics.ObserveCheck(metrics.OutcomeError)
		return models.NotFound(err.Error())
	}

	if result.Created {
		metrics.ObserveCheck(metrics.OutcomeCredited)
		metrics.CreditsApplied.Inc()
	} else if result.Duplicated {
		metrics.ObserveCheck(metrics.OutcomeDuplicate)
		metrics.DuplicatesAbsorbed.Inc()
	}

	log.WithFields(logger.Fields{
		"tx_id":     match.Transaction.ID,
		"user_id":   user.ID,
		"credited":  result.Created,
		"duplicate": result.Duplicated,
	}).Info("reconciliation completed")

	return models.Outcome{
		Found:      true,
		TxID:       match.Transaction.ID,
		UserID:     user.ID,
		AmountKop:  amountKop,
		CreditedCr: creditedCr,
		Credited:   result.Created,
		Duplicate:  result.Duplicated,
	}
}

// findMatch iterates candidate accounts in discovery order and stops at the
// first account whose statement yields any match. A failed or timed-out
// fetch for one candidate is skipped once, not retried.
func (s *Service) findMatch(ctx context.Context, codeNorm string, log logger.Logger) *models.MatchResult {
	to := s.now().Unix()
	from := to - int64(s.config.WindowHours)*3600

	for _, account := range s.bank.ListCandidateAccounts(ctx) {
		txs, err := s.bank.FetchStatement(ctx, account.ID, from, to)
		if err != nil {
			if errors.IsTransient(err) {
				log.WithError(err).WithField("account", account.ID).Warn("statement fetch failed, trying next account")
				continue
			}
			log.WithError(err).WithField("account", account.ID).Error("statement fetch failed")
			continue
		}

		if tx := matcher.FindMatch(txs, codeNorm); tx != nil {
			return &models.MatchResult{Transaction: tx, AccountID: account.ID}
		}
	}
	return nil
}

// negatedAmount inverts the bank's outbound sign convention (an inbound
// payment is reported negative) and floors at zero, so a transaction the
// bank reports as positive never produces a credit.
func negatedAmount(raw int64) int64 {
	if raw >= 0 {
		return 0
	}
	return -raw
}

// toCreditUnits converts minor currency units to whole credit units using
// the configured divisor, rounding down.
func (s *Service) toCreditUnits(amountKop int64) int64 {
	return decimal.NewFromInt(amountKop).
		Div(decimal.NewFromInt(s.config.ExchangeDivisor)).
		Floor().
		IntPart()
}
