package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"nutriplay-engine/internal/domain"
)

// StateCache persists student state snapshots as JSON so unconfirmed point deltas
// survive a restart. It implements app.StateCache.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateCache(client *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{client: client, ttl: ttl}
}

func (c *StateCache) Load(ctx context.Context, studentID string) (domain.StudentState, bool, error) {
	raw, err := c.client.Get(ctx, c.key(studentID)).Bytes()
	if err == redis.Nil {
		return domain.StudentState{}, false, nil
	}
	if err != nil {
		return domain.StudentState{}, false, err
	}
	var st domain.StudentState
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.StudentState{}, false, err
	}
	return st, true, nil
}

func (c *StateCache) Save(ctx context.Context, st domain.StudentState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(st.StudentID), payload, c.ttl).Err()
}

func (c *StateCache) key(studentID string) string {
	return "student:state:" + studentID
}
