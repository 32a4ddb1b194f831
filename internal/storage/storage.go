package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"medmanage/internal/config"
	"medmanage/internal/logger"
	"medmanage/internal/repository"
)

// Store is the storage handle held by the service layer for the life of the process.
type Store struct {
	Medicines repository.MedicineRepository
	Orders    repository.OrderRepository
	Schema    *repository.Schema

	client *mongo.Client
}

// Open builds the repositories for the configured driver.
//
// For mongo, an unreachable server is logged and the handle is still returned;
// requests fail individually until the server becomes reachable.
func Open(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	schema := repository.NewSchema(cfg.SchemaValidation)
	log := logger.FromContext(ctx)

	switch cfg.Driver {
	case config.DriverMemory:
		mem := repository.NewMemoryStore(schema)
		log.Info("using in-memory storage")
		return &Store{Medicines: mem, Orders: repository.NewMemoryOrders(mem), Schema: schema}, nil
	case config.DriverMongo:
		opts := options.Client().
			ApplyURI(cfg.Mongo.URI).
			SetConnectTimeout(cfg.Mongo.ConnectTimeout).
			SetServerSelectionTimeout(cfg.Mongo.ConnectTimeout)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			log.Error("could not connect to MongoDB", zap.Error(err))
		} else {
			log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))
		}

		db := client.Database(cfg.Mongo.Database)
		return &Store{
			Medicines: repository.NewMongoMedicines(db, schema),
			Orders:    repository.NewMongoOrders(db, schema),
			Schema:    schema,
			client:    client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close releases the underlying connection, if any.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
