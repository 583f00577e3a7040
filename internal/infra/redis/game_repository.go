package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"nutriplay-engine/internal/domain"
	"nutriplay-engine/internal/infra/memory"
)

// GameRepository caches game content in Redis and falls back to a loader on cache miss.
// Each game is stored as JSON: SET game:{gameID} {json} EX ttl
type GameRepository struct {
	client *redis.Client
	loader memory.GameLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewGameRepository(client *redis.Client, loader memory.GameLoader, ttl time.Duration) *GameRepository {
	return &GameRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *GameRepository) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if game, ok := r.cached(ctx, gameID); ok {
		return game, nil
	}

	result, err, _ := r.sf.Do(gameID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if game, ok := r.cached(ctx, gameID); ok {
			return game, nil
		}

		game, err := r.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}

		payload, err := json.Marshal(game)
		if err != nil {
			return domain.Game{}, err
		}
		if err := r.client.Set(ctx, r.key(gameID), payload, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache game %s: %v", gameID, err)
		}
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game), nil
}

// Invalidate drops a cached game so the next read goes to the loader.
func (r *GameRepository) Invalidate(ctx context.Context, gameID string) error {
	return r.client.Del(ctx, r.key(gameID)).Err()
}

func (r *GameRepository) cached(ctx context.Context, gameID string) (domain.Game, bool) {
	raw, err := r.client.Get(ctx, r.key(gameID)).Bytes()
	if err != nil {
		return domain.Game{}, false
	}
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		log.Printf("corrupt cached game %s: %v", gameID, err)
		return domain.Game{}, false
	}
	return game, true
}

func (r *GameRepository) key(gameID string) string {
	return "game:" + gameID
}

func (r *GameRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
