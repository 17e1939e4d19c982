// Package bootstrap builds the stores and publishers selected by config for
// the server and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/thilaks-prosperr/train-booking-system/internal/config"
	"github.com/thilaks-prosperr/train-booking-system/internal/database"
	"github.com/thilaks-prosperr/train-booking-system/internal/events"
	"github.com/thilaks-prosperr/train-booking-system/internal/kvstore"
	"github.com/thilaks-prosperr/train-booking-system/internal/seed"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
)

// OpenStore opens the configured store, applying the schema for postgres and
// loading the demo network when SEED_DEMO is set.
func OpenStore(ctx context.Context, cfg config.App) (store.Store, error) {
	var (
		st     store.Store
		writer seed.Writer
	)
	switch strings.ToLower(cfg.StoreDriver) {
	case config.StoreDriverBadger:
		log.Printf("Opening badger store (dir=%q)...", cfg.BadgerDir)
		kv, err := kvstore.Open(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		st, writer = kv, kv
	default:
		log.Println("Connecting to database...")
		repo, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		log.Println("Connected to database")
		st, writer = repo, repo
	}

	if cfg.SeedDemo {
		if err := seed.Load(ctx, writer); err != nil {
			st.Close()
			return nil, err
		}
		log.Printf("Loaded demo network: %d stations, %d trains", len(seed.Stations), len(seed.Trains))
	}
	return st, nil
}

// NewPublisher connects to the configured event broker.
func NewPublisher(cfg config.App) (events.Publisher, error) {
	switch strings.ToLower(cfg.EventBroker) {
	case config.BrokerKafka:
		log.Printf("Publishing booking events to kafka topic %s", cfg.KafkaTopic)
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.BrokerRabbitMQ:
		log.Printf("Publishing booking events to rabbitmq exchange %s", cfg.RabbitExchange)
		return events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
	case config.BrokerNone, "":
		return events.NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown EVENT_BROKER %q", cfg.EventBroker)
	}
}
