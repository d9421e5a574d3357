package training

import (
	"context"
	"database/sql"
	"time"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/errors"
)

// RoleInstructor is the users.role value that marks penalty targets.
const RoleInstructor = "instructor"

// SQLStore is the Postgres-backed training-request store. It shares the
// users table with the ledger.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an existing database handle and ensures the
// training_requests table exists.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS training_requests (
			id BIGSERIAL PRIMARY KEY,
			applicant_id BIGINT NOT NULL,
			position_cr BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_training_requests_status ON training_requests(status)`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return errors.StorageError(errors.CodeQueryFailed, "init training schema", err)
		}
	}
	return nil
}

// ListStalePending returns pending requests created before the cutoff.
func (s *SQLStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.TrainingRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, applicant_id, position_cr, status, created_at
		 FROM training_requests
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at`,
		models.TrainingRequestPending, cutoff)
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "stale request scan", err)
	}
	defer rows.Close()

	var stale []models.TrainingRequest
	for rows.Next() {
		var req models.TrainingRequest
		if err := rows.Scan(&req.ID, &req.ApplicantID, &req.PositionCr, &req.Status, &req.CreatedAt); err != nil {
			return nil, errors.StorageError(errors.CodeQueryFailed, "stale request scan", err)
		}
		stale = append(stale, req)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "stale request scan", err)
	}
	return stale, nil
}

// CountInstructors reports how many users hold the instructor role.
func (s *SQLStore) CountInstructors(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, RoleInstructor).Scan(&n)
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "instructor count", err)
	}
	return n, nil
}

// PenalizeInstructors applies a relative decrement to every instructor's
// balance in one statement, so concurrent credits are never overwritten.
func (s *SQLStore) PenalizeInstructors(ctx context.Context, amount int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET balance = balance - $1 WHERE role = $2`,
		amount, RoleInstructor)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "instructor penalty", err)
	}
	return nil
}

// MarkExpired moves a request out of pending. The status guard keeps a
// request from being expired twice by overlapping sweeps.
func (s *SQLStore) MarkExpired(ctx context.Context, requestID int64, status models.TrainingRequestStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE training_requests SET status = $1 WHERE id = $2 AND status = $3`,
		status, requestID, models.TrainingRequestPending)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "request expiry", err)
	}
	return nil
}
