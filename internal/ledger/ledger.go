// Package ledger implements the atomic, idempotent balance credit. The
// bank-assigned transaction id is the idempotency key: for a fixed id the
// balance increment is applied at most once, no matter how many times
// CreditOnce runs concurrently or sequentially.
package ledger

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"

	"github.com/lib/pq"
)

// CreditResult reports what CreditOnce did: exactly one of Created or
// Duplicated is true on success.
type CreditResult struct {
	Created    bool `json:"created"`
	Duplicated bool `json:"duplicated"`
}

// Ledger is the transactional crediting contract the orchestrator depends on.
type Ledger interface {
	CreditOnce(ctx context.Context, payment models.CreditedPayment) (CreditResult, error)
}

// UserFinder resolves credit recipients by their unique code.
type UserFinder interface {
	// FindUserByCode returns the user whose stored unique code equals the
	// original submitted code, or (nil, nil) when no such user exists.
	FindUserByCode(ctx context.Context, code string) (*models.User, error)
}

// Store is the Postgres-backed ledger and user store.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open connects to Postgres, verifies the connection and ensures the
// schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "open", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeQueryFailed, "ping", err)
	}

	store := NewStore(db)
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("ledger"),
	}
}

// InitSchema creates the ledger tables when missing. The UNIQUE constraint
// on tx_id is what turns concurrent duplicate credits into a detectable
// conflict instead of a double credit; balance is a statically declared
// BIGINT column, not a runtime-probed attribute.
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			unique_code TEXT UNIQUE,
			role TEXT NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS credited_payments (
			tx_id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			amount_kop BIGINT NOT NULL,
			credited_cr BIGINT NOT NULL,
			account_id TEXT NOT NULL DEFAULT '',
			tx_time BIGINT NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credited_payments_user_id ON credited_payments(user_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "init schema", err)
		}
	}
	return nil
}

// DB exposes the underlying handle so sibling stores can share the pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreditOnce checks for an existing ledger row with this payment's tx id,
// and when absent inserts the row and applies a relative increment to the
// user's balance, all inside one database transaction. A duplicate-key
// conflict raced in by a concurrent identical credit is absorbed into
// {Duplicated: true}; any other failure rolls the whole transaction back.
func (s *Store) CreditOnce(ctx context.Context, payment models.CreditedPayment) (CreditResult, error) {
	if err := payment.Validate(); err != nil {
		return CreditResult{}, errors.StorageError(errors.CodeQueryFailed, "credit", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CreditResult{}, errors.StorageError(errors.CodeTxBegin, "credit", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT tx_id FROM credited_payments WHERE tx_id = $1`, payment.TxID).Scan(&existing)
	switch {
	case err == nil:
		s.logger.WithField("tx_id", payment.TxID).Debug("credit already processed")
		return CreditResult{Duplicated: true}, nil
	case err != sql.ErrNoRows:
		return CreditResult{}, errors.StorageError(errors.CodeQueryFailed, "credit lookup", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credited_payments (tx_id, code, amount_kop, credited_cr, account_id, tx_time, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		payment.TxID, payment.Code, payment.AmountKop, payment.CreditedCr,
		payment.AccountID, payment.TxTime, payment.UserID)
	if err != nil {
		if IsUniqueViolation(err) {
			return CreditResult{Duplicated: true}, nil
		}
		return CreditResult{}, errors.StorageError(errors.CodeQueryFailed, "credit insert", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2`,
		payment.CreditedCr, payment.UserID)
	if err != nil {
		return CreditResult{}, errors.StorageError(errors.CodeQueryFailed, "balance increment", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return CreditResult{}, errors.StorageError(errors.CodeQueryFailed, "balance increment", sql.ErrNoRows).
			WithContext("user_id", strconv.FormatInt(payment.UserID, 10))
	}

	if err := tx.Commit(); err != nil {
		if IsUniqueViolation(err) {
			return CreditResult{Duplicated: true}, nil
		}
		return CreditResult{}, errors.StorageError(errors.CodeTxCommit, "credit", err)
	}

	s.logger.WithFields(logger.Fields{
		"tx_id":       payment.TxID,
		"user_id":     payment.UserID,
		"credited_cr": payment.CreditedCr,
	}).Info("credit applied")
	return CreditResult{Created: true}, nil
}

// FindUserByCode looks a user up by the original (non-normalized) submitted
// code. A missing user is (nil, nil), not an error: the caller reports it as
// a partial-success outcome.
func (s *Store) FindUserByCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, unique_code, balance FROM users WHERE unique_code = $1`,
		code).Scan(&u.ID, &u.Username, &u.UniqueCode, &u.Balance)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "user lookup", err)
	}
	return &u, nil
}

// Balance returns the current balance of a user.
func (s *Store) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "balance lookup", err)
	}
	return balance, nil
}

// IsUniqueViolation reports whether err is a duplicate-key conflict. It
// recognizes the Postgres unique_violation code and falls back to message
// sniffing for wrapped drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
