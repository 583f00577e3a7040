package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"nutriplay-engine/internal/domain"
)

// StateCache persists student state between restarts (Redis in production).
type StateCache interface {
	Load(ctx context.Context, studentID string) (domain.StudentState, bool, error)
	Save(ctx context.Context, state domain.StudentState) error
}

// StateStore is the per-student projection of points and notifications shared by every
// screen. The server total is authoritative; local deltas stay pending until a refresh
// shows the server has them. Values here are for display only.
type StateStore struct {
	cache StateCache
	now   func() time.Time

	mu       sync.Mutex
	students map[string]*studentEntry
}

type studentEntry struct {
	state       domain.StudentState
	subscribers map[chan domain.StudentState]struct{}
}

// NewStateStore builds a store. cache may be nil.
func NewStateStore(cache StateCache) *StateStore {
	return NewStateStoreWithClock(cache, time.Now)
}

// NewStateStoreWithClock is used by tests for deterministic timestamps.
func NewStateStoreWithClock(cache StateCache, now func() time.Time) *StateStore {
	return &StateStore{
		cache:    cache,
		now:      now,
		students: make(map[string]*studentEntry),
	}
}

// Get returns the current state of a student.
func (s *StateStore) Get(ctx context.Context, studentID string) domain.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.entryLocked(ctx, studentID).state)
}

// ApplyDelta adds points from a finished session before the server confirms them.
// acknowledged records whether the finalize call succeeded.
func (s *StateStore) ApplyDelta(ctx context.Context, studentID, sessionID string, points int, acknowledged bool) domain.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(ctx, studentID)
	if points != 0 {
		entry.state.Pending = append(entry.state.Pending, domain.PendingDelta{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			Points:       points,
			Acknowledged: acknowledged,
			AppliedAt:    s.now(),
		})
	}
	return s.commitLocked(ctx, entry)
}

// Acknowledge marks the deltas of a session as received by the server.
func (s *StateStore) Acknowledge(ctx context.Context, studentID, sessionID string) domain.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(ctx, studentID)
	for i := range entry.state.Pending {
		if entry.state.Pending[i].SessionID == sessionID {
			entry.state.Pending[i].Acknowledged = true
		}
	}
	return s.commitLocked(ctx, entry)
}

// Reconcile replaces the confirmed total with the server value and drops every delta the
// server already counted. Unacknowledged deltas survive until their finalize is retried.
func (s *StateStore) Reconcile(ctx context.Context, studentID string, serverTotal int) domain.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(ctx, studentID)
	entry.state.Confirmed = serverTotal
	kept := entry.state.Pending[:0]
	for _, d := range entry.state.Pending {
		if !d.Acknowledged {
			kept = append(kept, d)
		}
	}
	entry.state.Pending = kept
	entry.state.RefreshedAt = s.now()
	return s.commitLocked(ctx, entry)
}

// SetNotifications replaces the notification list.
func (s *StateStore) SetNotifications(ctx context.Context, studentID string, notes []domain.Notification) domain.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(ctx, studentID)
	entry.state.Notifications = append([]domain.Notification(nil), notes...)
	return s.commitLocked(ctx, entry)
}

// MarkRead flags one notification as read.
func (s *StateStore) MarkRead(ctx context.Context, studentID, notificationID string) domain.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(ctx, studentID)
	for i := range entry.state.Notifications {
		if entry.state.Notifications[i].ID == notificationID {
			entry.state.Notifications[i].Read = true
		}
	}
	return s.commitLocked(ctx, entry)
}

// Subscribe returns a channel that receives the state after every change, starting with
// the current one. The caller must invoke cancel to avoid leaks.
func (s *StateStore) Subscribe(ctx context.Context, studentID string) (<-chan domain.StudentState, func()) {
	ch := make(chan domain.StudentState, 4)

	// Initial state is queued before registration; commits always follow it.
	s.mu.Lock()
	entry := s.entryLocked(ctx, studentID)
	ch <- cloneState(entry.state)
	entry.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := entry.subscribers[ch]; ok {
			delete(entry.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *StateStore) entryLocked(ctx context.Context, studentID string) *studentEntry {
	if entry, ok := s.students[studentID]; ok {
		return entry
	}
	entry := &studentEntry{
		state:       domain.StudentState{StudentID: studentID},
		subscribers: make(map[chan domain.StudentState]struct{}),
	}
	if s.cache != nil {
		cached, ok, err := s.cache.Load(ctx, studentID)
		if err != nil {
			log.Printf("load student state %s: %v", studentID, err)
		} else if ok {
			entry.state = cached
			entry.state.StudentID = studentID
		}
	}
	s.students[studentID] = entry
	return entry
}

// commitLocked persists and broadcasts the entry, dropping stale updates for slow readers.
func (s *StateStore) commitLocked(ctx context.Context, entry *studentEntry) domain.StudentState {
	snapshot := cloneState(entry.state)
	if s.cache != nil {
		if err := s.cache.Save(ctx, snapshot); err != nil {
			log.Printf("save student state %s: %v", snapshot.StudentID, err)
		}
	}
	for ch := range entry.subscribers {
		select {
		case ch <- cloneState(snapshot):
		default:
			select {
			case <-ch:
			default:
			}
			ch <- cloneState(snapshot)
		}
	}
	return snapshot
}

func cloneState(st domain.StudentState) domain.StudentState {
	st.Pending = append([]domain.PendingDelta(nil), st.Pending...)
	st.Notifications = append([]domain.Notification(nil), st.Notifications...)
	return st
}
