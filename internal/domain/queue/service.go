package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/store"
)

// Service is the queue priority engine. All mutations and ordering reads for
// one tenant serialize on that tenant's lock, so two staff actions can never
// observe conflicting position views; different tenants' queues proceed
// fully in parallel.
type Service struct {
	repo  Repository
	guard *store.Guard

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(repo Repository, guard *store.Guard) *Service {
	return &Service{
		repo:  repo,
		guard: guard,
		locks: make(map[string]*sync.Mutex),
	}
}

// tenantLock returns the mutex serializing one tenant's queue.
func (s *Service) tenantLock(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenantID] = l
	}
	return l
}

// Enqueue creates a WAITING entry for an existing patient. Priority is
// clamped to [MinPriority, MaxPriority].
func (s *Service) Enqueue(ctx context.Context, tenantID, patientID string, priority int) (*Entry, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if _, err := s.guard.Resolve(ctx, tenantID, store.KindPatient, patientID); err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	if priority < MinPriority {
		priority = MinPriority
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}

	l := s.tenantLock(tenantID)
	l.Lock()
	defer l.Unlock()

	now := time.Now().UTC()
	entry := &Entry{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		PatientID: patientID,
		Priority:  priority,
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Transition moves an entry along one of the two allowed forward edges.
func (s *Service) Transition(ctx context.Context, tenantID, entryID string, newStatus Status) (*Entry, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("invalid status: %s", newStatus)
	}

	l := s.tenantLock(tenantID)
	l.Lock()
	defer l.Unlock()

	entry, err := s.repo.GetByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, fmt.Errorf("resolve queue entry: %w", err)
	}
	if !CanTransition(entry.Status, newStatus) {
		return nil, fmt.Errorf("invalid transition %s -> %s", entry.Status, newStatus)
	}

	entry.Status = newStatus
	entry.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove deletes an entry still in the active pipeline. COMPLETED entries
// are retained for audit and cannot be removed.
func (s *Service) Remove(ctx context.Context, tenantID, entryID string) error {
	l := s.tenantLock(tenantID)
	l.Lock()
	defer l.Unlock()

	entry, err := s.repo.GetByID(ctx, tenantID, entryID)
	if err != nil {
		return fmt.Errorf("resolve queue entry: %w", err)
	}
	if entry.Status == StatusCompleted {
		return fmt.Errorf("completed entries cannot be removed")
	}
	return s.repo.Delete(ctx, tenantID, entryID)
}

// ActiveOrdering returns all non-COMPLETED entries, WAITING entries first by
// priority descending then arrival ascending, followed by IN_CONSULTATION
// entries in the same order. Only WAITING entries hold a 1-based position: a
// patient who moves into consultation releases their waiting slot, so the
// patients behind them shift up. Positions are recomputed on every call from
// the current entries, never cached.
func (s *Service) ActiveOrdering(ctx context.Context, tenantID string) ([]*Entry, error) {
	l := s.tenantLock(tenantID)
	l.Lock()
	defer l.Unlock()

	return s.activeOrderingLocked(ctx, tenantID)
}

func (s *Service) activeOrderingLocked(ctx context.Context, tenantID string) ([]*Entry, error) {
	entries, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.Status != StatusCompleted {
			active = append(active, e)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Status != active[j].Status {
			return active[i].Status == StatusWaiting
		}
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	pos := 0
	for _, e := range active {
		if e.Status == StatusWaiting {
			pos++
			e.Position = pos
		} else {
			e.Position = 0
		}
	}
	return active, nil
}

// GetEntry returns a single entry with its current position filled in while
// it is still WAITING; entries in consultation hold no waiting slot.
func (s *Service) GetEntry(ctx context.Context, tenantID, entryID string) (*Entry, error) {
	l := s.tenantLock(tenantID)
	l.Lock()
	defer l.Unlock()

	entry, err := s.repo.GetByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == StatusCompleted {
		return entry, nil
	}

	active, err := s.activeOrderingLocked(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, e := range active {
		if e.ID == entry.ID {
			entry.Position = e.Position
			break
		}
	}
	return entry, nil
}
