package ledger

import (
	"context"
	"database/sql"
	"sync"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/errors"
)

// MemoryStore is an in-memory Ledger and UserFinder used by tests and the
// one-shot CLI when no database is configured. It enforces the same
// at-most-once crediting contract as the Postgres store, serialized by a
// single mutex.
type MemoryStore struct {
	mu       sync.Mutex
	payments map[string]models.CreditedPayment
	users    map[int64]*models.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[string]models.CreditedPayment),
		users:    make(map[int64]*models.User),
	}
}

// AddUser registers a user. Intended for test setup.
func (m *MemoryStore) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := u
	m.users[u.ID] = &copied
}

// CreditOnce implements Ledger with the check-then-insert-then-increment
// step under one lock, so racing credits for the same tx id collapse to a
// single applied increment.
func (m *MemoryStore) CreditOnce(ctx context.Context, payment models.CreditedPayment) (CreditResult, error) {
	if err := payment.Validate(); err != nil {
		return CreditResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.payments[payment.TxID]; exists {
		return CreditResult{Duplicated: true}, nil
	}

	user, ok := m.users[payment.UserID]
	if !ok {
		return CreditResult{}, errors.StorageError(errors.CodeQueryFailed, "balance increment", sql.ErrNoRows)
	}

	m.payments[payment.TxID] = payment
	user.Balance += payment.CreditedCr
	return CreditResult{Created: true}, nil
}

// FindUserByCode implements UserFinder.
func (m *MemoryStore) FindUserByCode(ctx context.Context, code string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.UniqueCode == code {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

// Balance returns the current balance of a user.
func (m *MemoryStore) Balance(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u.Balance
	}
	return 0
}

// PaymentCount returns the number of ledger rows, for test assertions.
func (m *MemoryStore) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}
