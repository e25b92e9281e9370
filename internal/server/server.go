package server

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/auth"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/config"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/events"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/fleet"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/history"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/presence"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/schedule"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/storage"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/stream"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const schemaTimeout = 10 * time.Second

// Deps are the optional backends. Anything nil is replaced by an in-process
// fallback or leaves its feature off.
type Deps struct {
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Mongo    *mongo.Database
	SQLite   *sql.DB
	AMQP     *amqp091.Channel
	Uploader storage.Uploader
}

type deviceStates interface {
	For(deviceID string) localstate.Store
}

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Stream   *stream.Hub
	Store    docstore.Store
	Sessions *session.Registry
	Trips    *tracking.Trips
	Presence *presence.Monitor
	History  *history.Service

	stopBroadcast func()
	bgCancel      context.CancelFunc
	bgDone        sync.WaitGroup
}

func NewServer(cfg config.Config, deps Deps) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + session.DeviceHeader,
	}))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		Stream: stream.NewHub(deps.Redis),
	}
	s.Store = selectStore(cfg, deps, s.Stream)

	registerRoutes(s, deps)
	return s
}

func selectStore(cfg config.Config, deps Deps, hub *stream.Hub) docstore.Store {
	switch cfg.StoreBackend {
	case "postgres":
		if deps.DB == nil {
			log.Printf("store: postgres selected but not connected, using memory")
			break
		}
		pg := docstore.NewPostgres(deps.DB, hub)
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Printf("store: postgres schema: %v", err)
		}
		return pg
	case "mongo":
		if deps.Mongo == nil {
			log.Printf("store: mongo selected but not connected, using memory")
			break
		}
		return docstore.NewMongo(deps.Mongo, hub)
	case "", "memory":
	default:
		log.Printf("store: unknown backend %q, using memory", cfg.StoreBackend)
	}
	return docstore.NewMemory()
}

func selectDeviceStates(deps Deps) deviceStates {
	if deps.SQLite != nil {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		lite, err := localstate.NewSQLite(ctx, deps.SQLite)
		if err == nil {
			return lite
		}
		log.Printf("localstate: sqlite schema: %v", err)
	}
	return localstate.NewDevices()
}

func registerRoutes(s *Server, deps Deps) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "store": s.Cfg.StoreBackend})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	adminMiddleware := []fiber.Handler{jwtMiddleware, auth.RequireRole(string(session.RoleAdmin))}
	devices := selectDeviceStates(deps)

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.Cfg.AdminEmail, s.Cfg.AdminPasswordHash, s.Store)
	catalogSvc := catalog.NewService(s.Store)
	s.Sessions = session.NewRegistry(devices.For, session.NewStoreDirectory(s.Store), authSvc)

	var archive history.Archiver
	if deps.DB != nil {
		storageSvc := storage.NewService(deps.DB, deps.Uploader)
		ensure(storageSvc.EnsureSchema, "storage")
		storage.RegisterAdminRoutes(s.App.Group("/admin"), storageSvc, adminMiddleware...)
		if deps.Uploader != nil {
			archive = storageSvc
		}

		s.History = history.NewService(deps.DB, archive)
		ensure(s.History.EnsureSchema, "history")
		history.RegisterAdminRoutes(s.App.Group("/admin"), s.History, adminMiddleware...)
	}

	var recorder tracking.Recorder
	if s.History != nil {
		recorder = s.History
	}
	s.Trips = tracking.NewTrips(tracking.NewPublisher(s.Store, recorder, s.Cfg.WriteTimeout, s.Cfg.PositionTimeout))
	wakeLock := func(deviceID string) tracking.WakeLock {
		return tracking.NewDeviceWakeLock(devices.For(deviceID))
	}

	var notifier events.Notifier
	if deps.AMQP != nil {
		n, err := events.NewAMQPNotifier(deps.AMQP)
		if err != nil {
			log.Printf("events: %v", err)
		} else {
			notifier = n
		}
	}
	eventsSvc := events.NewService(s.Store, notifier)
	scheduleSvc := schedule.NewService(s.Store)

	s.Presence = presence.NewMonitor(s.Store, s.Cfg.StaleAfter, s.Cfg.PresenceInterval)
	s.stopBroadcast = presence.Broadcast(s.Presence, s.Stream)

	passengers := fleet.NewSubscriber(s.Store, fleet.FilterFor(fleet.ViewPassenger, s.Cfg.StaleAfter))
	dashboard := fleet.NewSubscriber(s.Store, fleet.FilterFor(fleet.ViewAdmin, s.Cfg.StaleAfter))

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	session.RegisterRoutes(s.App.Group("/session"), s.Sessions, catalogSvc, authSvc)
	schedule.RegisterRoutes(s.App.Group("/session"), scheduleSvc, s.Sessions)
	catalog.RegisterRoutes(s.App.Group("/catalog"), catalogSvc)
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Trips, s.Sessions, wakeLock,
		jwtMiddleware, auth.RequireRole(string(session.RoleDriver)))
	fleet.RegisterRoutes(s.App.Group("/fleet"), passengers)
	events.RegisterRoutes(s.App.Group("/events"), eventsSvc, s.Sessions, jwtMiddleware)

	admin := s.App.Group("/admin")
	catalog.RegisterAdminRoutes(admin, catalogSvc, adminMiddleware...)
	fleet.RegisterAdminRoutes(admin, dashboard, adminMiddleware...)
	presence.RegisterRoutes(admin, s.Presence, s.Stream, adminMiddleware...)
	events.RegisterAdminRoutes(admin, eventsSvc, adminMiddleware...)
	schedule.RegisterAdminRoutes(admin, scheduleSvc, adminMiddleware...)
}

func ensure(fn func(context.Context) error, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Printf("%s: schema: %v", name, err)
	}
}

// Start runs the presence loop until Shutdown.
func (s *Server) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.bgCancel = cancel
	s.bgDone.Add(1)
	go func() {
		defer s.bgDone.Done()
		s.Presence.Run(ctx)
	}()
}

// Shutdown ends every running trip so no live record is left active, then
// stops the background work.
func (s *Server) Shutdown(ctx context.Context) {
	s.Trips.StopAll(ctx)
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgDone.Wait()
	if s.stopBroadcast != nil {
		s.stopBroadcast()
	}
	s.Stream.Close()
}
