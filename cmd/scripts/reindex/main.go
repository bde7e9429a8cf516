package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/internal/services"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	"github.com/joho/godotenv"
)

// Rebuilds the search mirror from the primary store, then drains whatever
// the outbox still holds.
func main() {
	batch := flag.Int("batch", 500, "rows read per batch")
	entity := flag.String("entity", "", "reindex only this entity, e.g. project")
	drain := flag.Bool("drain", true, "apply pending change events afterwards")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	if err := models.InitDB(&cfg.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	index, err := mirror.New(ctx, &cfg.Search)
	if err != nil {
		log.Fatalf("Failed to open search mirror: %v", err)
	}
	defer index.Close()

	outbox := services.NewOutbox(models.GetDB(), index)
	res := services.NewResources(services.SyncDeps{DB: models.GetDB(), Outbox: outbox})

	counts := make(map[string]int)
	for _, r := range res.All() {
		if *entity != "" && r.Name() != *entity {
			continue
		}
		n, err := r.Reindex(ctx, *batch)
		counts[r.Name()] = n
		if err != nil {
			log.Fatalf("Failed to reindex %s after %d documents: %v", r.Name(), n, err)
		}
	}
	if len(counts) == 0 {
		log.Fatalf("Unknown entity %q", *entity)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("%-40s %s\n", "Entity", "Documents")
	for _, name := range names {
		fmt.Printf("%-40s %d\n", name, counts[name])
	}

	if !*drain {
		return
	}
	relay := services.NewRelayService(models.GetDB(), outbox, cfg.Sync)
	applied, err := relay.RunLocked(ctx)
	if err != nil {
		log.Fatalf("Failed to drain outbox: %v", err)
	}
	fmt.Printf("\nApplied %d pending change events\n", applied)
}
