package cli

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"nutriplay-engine/internal/catalog"
	"nutriplay-engine/internal/config"
	"nutriplay-engine/internal/domain"
	"nutriplay-engine/internal/infra/postgres"
	infraredis "nutriplay-engine/internal/infra/redis"
)

// NewSeedCmd writes the game catalog (YAML file or the built-in one) into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load game content into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg)
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config) error {
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	games, err := loadCatalog(cfg.Catalog.File)
	if err != nil {
		return err
	}

	db := openBunDB(cfg.Postgres.URL)
	defer db.Close()

	list := make([]domain.Game, 0, len(games))
	for _, g := range games {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	n, err := postgres.NewGameWriter(db).Upsert(ctx, list)
	if err != nil {
		return fmt.Errorf("seed games: %w", err)
	}
	log.Printf("seeded %d games", n)

	if client := newRedisClient(cfg); client != nil {
		defer client.Close()
		if err := dropCachedGames(ctx, client, list); err != nil {
			return err
		}
	}
	return nil
}

// dropCachedGames evicts reseeded games so running servers reload them.
func dropCachedGames(ctx context.Context, client *redis.Client, games []domain.Game) error {
	cache := infraredis.NewGameRepository(client, nil, 0)
	for _, g := range games {
		if err := cache.Invalidate(ctx, g.ID); err != nil {
			return fmt.Errorf("invalidate cached game %s: %w", g.ID, err)
		}
	}
	log.Printf("dropped %d cached games", len(games))
	return nil
}

// loadCatalog reads the YAML catalog when configured, otherwise the built-in games.
func loadCatalog(path string) (map[string]domain.Game, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	games, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return games, nil
}
