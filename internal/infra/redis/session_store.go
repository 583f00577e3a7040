package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"nutriplay-engine/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in process (they own timers and in-flight submissions); Redis holds a
// liveness marker per student with the game being played, refreshed on every event,
// so other instances refuse a second session for the same student.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Get(studentID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[studentID]
	return session, ok
}

func (s *SessionStore) Put(studentID string, session *app.Session) {
	s.mu.Lock()
	s.sessions[studentID] = session
	s.mu.Unlock()

	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(studentID), session.Snapshot().GameID, s.ttl).Err(); err != nil {
		log.Printf("mark session for student %s: %v", studentID, err)
	}
}

func (s *SessionStore) Delete(studentID string) {
	s.mu.Lock()
	delete(s.sessions, studentID)
	s.mu.Unlock()

	if err := s.client.Del(context.Background(), s.key(studentID)).Err(); err != nil {
		log.Printf("clear session for student %s: %v", studentID, err)
	}
}

// Touch extends the marker while the student keeps playing.
func (s *SessionStore) Touch(ctx context.Context, studentID string) {
	if err := s.client.Expire(ctx, s.key(studentID), s.ttl).Err(); err != nil {
		log.Printf("refresh session marker for student %s: %v", studentID, err)
	}
}

// Playing reports the game a student is marked as playing, across instances.
func (s *SessionStore) Playing(ctx context.Context, studentID string) (string, bool, error) {
	gameID, err := s.client.Get(ctx, s.key(studentID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return gameID, true, nil
}

func (s *SessionStore) key(studentID string) string {
	return "play:session:" + studentID
}
