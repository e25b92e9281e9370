package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/config"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/db"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/server"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	connectSQLite   func(config.Config) (*sql.DB, error)
	connectMongo    func(config.Config) (*mongo.Database, error)
	connectRabbitMQ func(config.Config) (*amqp091.Connection, *amqp091.Channel, error)
	newUploader     func(config.Config) (storage.Uploader, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, server.Deps, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		connectSQLite:   db.ConnectSQLite,
		connectMongo:    db.ConnectMongo,
		connectRabbitMQ: db.ConnectRabbitMQ,
		newUploader: func(cfg config.Config) (storage.Uploader, error) {
			return storage.NewS3Uploader(cfg)
		},
		notify: signal.Notify,
		run:    Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	var sd server.Deps

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Printf("postgres connection failed: %v", err)
	} else {
		sd.DB = pg
	}

	sd.Redis = deps.connectRedis(cfg)

	if deps.connectSQLite != nil {
		lite, err := deps.connectSQLite(cfg)
		if err != nil {
			log.Printf("sqlite open failed, device state stays in memory: %v", err)
		} else {
			sd.SQLite = lite
		}
	}

	if cfg.StoreBackend == "mongo" && deps.connectMongo != nil {
		mdb, err := deps.connectMongo(cfg)
		if err != nil {
			log.Printf("mongo connection failed: %v", err)
		} else {
			sd.Mongo = mdb
		}
	}

	var amqpConn *amqp091.Connection
	if cfg.RabbitMQURL != "" && deps.connectRabbitMQ != nil {
		conn, ch, err := deps.connectRabbitMQ(cfg)
		if err != nil {
			log.Printf("rabbitmq connection failed, emergency alerts disabled: %v", err)
		} else {
			amqpConn = conn
			sd.AMQP = ch
		}
	}

	if cfg.S3Bucket != "" && deps.newUploader != nil {
		up, err := deps.newUploader(cfg)
		if err != nil {
			log.Printf("s3 uploader unavailable, trips are not archived: %v", err)
		} else {
			sd.Uploader = up
		}
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, sd, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
	if amqpConn != nil {
		_ = amqpConn.Close()
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals. Running trips
// are ended before the backends close.
func Run(ctx context.Context, cfg config.Config, deps server.Deps, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, deps)
	srv.Start(ctx)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	var runErr error
	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	if runErr == nil {
		runErr = shutdownFn(srv.App, shutdownCtx)
	}
	closeDeps(shutdownCtx, deps)
	return runErr
}

func closeDeps(ctx context.Context, deps server.Deps) {
	if deps.DB != nil {
		deps.DB.Close()
	}
	if deps.Redis != nil {
		_ = deps.Redis.Close()
	}
	if deps.SQLite != nil {
		_ = deps.SQLite.Close()
	}
	if deps.Mongo != nil {
		_ = deps.Mongo.Client().Disconnect(ctx)
	}
	if deps.AMQP != nil {
		_ = deps.AMQP.Close()
	}
}
