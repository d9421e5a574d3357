package training

import (
	"context"
	"sync"
	"time"

	"payment-reconciliation-service/internal/models"
)

// MemoryStore is an in-memory Store used by tests and the one-shot CLI
// sweep when no database is configured.
type MemoryStore struct {
	mu          sync.Mutex
	requests    map[int64]models.TrainingRequest
	instructors map[int64]int64 // instructor id -> balance
	nextID      int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:    make(map[int64]models.TrainingRequest),
		instructors: make(map[int64]int64),
		nextID:      1,
	}
}

// AddRequest seeds a training request and returns its id.
func (m *MemoryStore) AddRequest(req models.TrainingRequest) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID
	m.nextID++
	if req.Status == "" {
		req.Status = models.TrainingRequestPending
	}
	m.requests[req.ID] = req
	return req.ID
}

// AddInstructor seeds an instructor with a starting balance.
func (m *MemoryStore) AddInstructor(id, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructors[id] = balance
}

// ListStalePending implements Store.
func (m *MemoryStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.TrainingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []models.TrainingRequest
	for _, req := range m.requests {
		if req.Status == models.TrainingRequestPending && req.CreatedAt.Before(cutoff) {
			stale = append(stale, req)
		}
	}
	return stale, nil
}

// CountInstructors implements Store.
func (m *MemoryStore) CountInstructors(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.instructors)), nil
}

// PenalizeInstructors implements Store.
func (m *MemoryStore) PenalizeInstructors(ctx context.Context, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.instructors {
		m.instructors[id] -= amount
	}
	return nil
}

// MarkExpired implements Store.
func (m *MemoryStore) MarkExpired(ctx context.Context, requestID int64, status models.TrainingRequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.Status != models.TrainingRequestPending {
		return nil
	}
	req.Status = status
	m.requests[requestID] = req
	return nil
}

// Request returns a seeded request by id.
func (m *MemoryStore) Request(id int64) (models.TrainingRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	return req, ok
}

// InstructorBalance returns an instructor's current balance.
func (m *MemoryStore) InstructorBalance(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instructors[id]
}
