package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"nutriplay-engine/internal/catalog"
	"nutriplay-engine/internal/domain"
	"nutriplay-engine/internal/infra/memory"
)

func TestGameRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{GameLoader: memory.NewStaticGameLoader(catalog.Default())}
	repo := NewGameRepository(client, loader, time.Minute)

	game, err := repo.GetGame(context.Background(), catalog.SurveyGameID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("game:" + catalog.SurveyGameID) {
		t.Fatalf("expected game cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetGame(context.Background(), catalog.SurveyGameID)
	if err != nil {
		t.Fatalf("get cached game: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Kind != domain.KindSurvey || len(cached.Survey) != len(game.Survey) {
		t.Fatalf("cached game differs: %+v", cached)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetGame(context.Background(), catalog.SurveyGameID); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), catalog.SurveyGameID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetGame(context.Background(), catalog.SurveyGameID)
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestGameRepositoryUnknownGame(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewGameRepository(newClient(mr), memory.NewStaticGameLoader(catalog.Default()), time.Minute)
	if _, err := repo.GetGame(context.Background(), "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
	if mr.Exists("game:missing") {
		t.Fatalf("misses must not be cached")
	}
}

type countingLoader struct {
	memory.GameLoader
	calls int
}

func (l *countingLoader) LoadGame(ctx context.Context, gameID string) (domain.Game, error) {
	l.calls++
	return l.GameLoader.LoadGame(ctx, gameID)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
