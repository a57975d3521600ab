package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/studyroom-seating/internal/assignment"
	"github.com/iliyamo/studyroom-seating/internal/config"
	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/events"
	"github.com/iliyamo/studyroom-seating/internal/handler"
	"github.com/iliyamo/studyroom-seating/internal/layout"
	"github.com/iliyamo/studyroom-seating/internal/middleware"
	"github.com/iliyamo/studyroom-seating/internal/repository"
	"github.com/iliyamo/studyroom-seating/internal/router"
	"github.com/iliyamo/studyroom-seating/internal/status"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine outside development
	cfg := config.Load()
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	evCfg := config.LoadEventsConfig()
	edCfg := config.LoadEditorConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Infof("schema migrated (%s)", dialect)
	}

	// Redis is optional: without it caching and rate limiting are off.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	seatCache := middleware.NewRedisCache(cacheCfg, rdb)

	// ---- Repositories ----
	rooms := repository.NewRoomRepo(db)
	nodes := repository.NewNodeRepo(db)
	users := repository.NewUserRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	perms := repository.NewPermissionRepo(db)

	// ---- Events ----
	hub := events.NewHub(evCfg.StreamBuffer)
	hub.OnEvent(func(ev events.SeatChanged) {
		if err := seatCache.Bump(context.Background(), ev.RoomID); err != nil {
			log.Warnf("cache bump room %d: %v", ev.RoomID, err)
		}
	})
	var pub events.Publisher = hub
	if evCfg.Backend == "amqp" {
		// Every instance, this one included, receives the event back from
		// the broker and feeds its hub.  If the broker is unreachable the
		// event is delivered locally only.
		amqpPub := events.NewAMQPPublisher(evCfg.AMQPURL, evCfg.Exchange)
		pub = events.PublisherFunc(func(ctx context.Context, ev events.SeatChanged) error {
			if err := amqpPub.PublishSeatChanged(ctx, ev); err != nil {
				hub.Broadcast(ev)
				return err
			}
			return nil
		})
		go func() {
			if err := events.StartConsumer(ctx, evCfg.AMQPURL, evCfg.Exchange, hub.Broadcast); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("seat-consumer stopped: %v", err)
			}
		}()
	}

	// ---- Engines ----
	engine := assignment.NewEngine(repository.Directory{Nodes: nodes, Users: users}, assignments, pub)
	resolver := status.NewResolver(repository.StatusSource{Nodes: nodes, Permissions: perms})
	sessions := layout.NewSessions(nodes, edCfg.CellPx)
	go sessions.RunSweeper(ctx, edCfg.SweepInterval, edCfg.SessionIdle, func(n int) {
		log.Infof("closed %d idle editor sessions", n)
	})

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(rlCfg, rdb))

	router.Register(e, db, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users),
		Rooms:       handler.NewRoomHandler(rooms, nodes, seatCache, pub),
		Editor:      handler.NewEditorHandler(sessions, seatCache, pub),
		Assignment:  handler.NewAssignmentHandler(engine, assignments),
		Status:      handler.NewStatusHandler(resolver, hub, rooms, perms),
		Permissions: handler.NewPermissionHandler(perms),
		Students:    handler.NewStudentHandler(users, assignments),
	}, cfg.JWTSecret, seatCache.Middleware())

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s, db=%s, events=%s)", addr, cfg.Env, dialect, evCfg.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
