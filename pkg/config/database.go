package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/quill/pkg/kv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB holds the storage backend and the connection behind it
type DB struct {
	Backend kv.Backend

	sqlite   *kv.SQLiteBackend
	postgres *gorm.DB
	mongo    *mongo.Client
}

// InitDB opens the backend selected by cfg.StorageDriver
func InitDB(ctx context.Context, cfg *Config) (*DB, error) {
	switch cfg.StorageDriver {
	case DriverMemory:
		slog.Warn("using in-memory storage, data is lost on exit")
		return &DB{Backend: kv.NewMemoryBackend(cfg.QuotaBytes)}, nil

	case DriverSQLite:
		backend, err := kv.NewSQLiteBackend(cfg.SQLitePath, cfg.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		slog.Info("opened SQLite store", "path", cfg.SQLitePath)
		return &DB{Backend: backend, sqlite: backend}, nil

	case DriverPostgres:
		db, err := initPostgres(cfg.PostgresConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		backend, err := kv.NewGormBackend(db)
		if err != nil {
			closeGorm(db)
			return nil, fmt.Errorf("failed to prepare PostgreSQL store: %w", err)
		}
		return &DB{Backend: backend, postgres: db}, nil

	case DriverMongo:
		client, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return &DB{Backend: kv.NewMongoBackend(client.Database(cfg.MongoDatabase)), mongo: client}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	slog.Info("connected to PostgreSQL")
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("connected to MongoDB")
	return client, nil
}

// CloseDB closes whatever connection InitDB opened
func (db *DB) CloseDB() {
	if db.sqlite != nil {
		if err := db.sqlite.Close(); err != nil {
			slog.Error("closing SQLite store", "error", err)
		}
	}

	if db.postgres != nil {
		closeGorm(db.postgres)
	}

	if db.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.mongo.Disconnect(ctx); err != nil {
			slog.Error("closing MongoDB connection", "error", err)
		} else {
			slog.Info("MongoDB connection closed")
		}
	}
}

func closeGorm(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("getting SQL DB from GORM", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("closing PostgreSQL connection", "error", err)
		return
	}
	slog.Info("PostgreSQL connection closed")
}
