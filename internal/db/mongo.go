package db

import (
	"context"
	"fmt"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongo(cfg config.Config) (*mongo.Database, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo uri not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(cfg.MongoDB), nil
}
