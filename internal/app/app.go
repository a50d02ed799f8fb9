package app

import (
	"context"
	"fmt"
	"time"

	"mentorhub/internal/cache"
	"mentorhub/internal/config"
	"mentorhub/internal/repository"
	"mentorhub/internal/service"
	"mentorhub/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App holds every long-lived dependency of the server
type App struct {
	Config *config.Config

	BookingRepo    repository.BookingRepo
	RoomRepo       repository.RoomRepo
	ChatRepo       repository.ChatRepo
	WhiteboardRepo repository.WhiteboardRepo

	RoomCache cache.RoomCache
	Presence  cache.PresenceCache
	Locker    cache.BookingLocker

	AuthService       *service.AuthService
	RoomService       *service.RoomService
	ChatService       *service.ChatService
	WhiteboardService *service.WhiteboardService
	BookingService    *service.BookingService

	Hub *ws.Hub

	closers []func(context.Context) error
}

// New connects the configured backends and wires the services around one hub
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.Store {
	case config.StoreMemory:
		mem := repository.NewMemory()
		a.BookingRepo = mem.Bookings
		a.RoomRepo = mem.Rooms
		a.ChatRepo = mem.Chats
		a.WhiteboardRepo = mem.Whiteboards
		a.RoomCache = cache.NewMemoryRoomCache()
		a.Presence = cache.NewMemoryPresence()
		a.Locker = cache.NewLocalLocker()
		log.Warn().Str("module", "app").Msg("using in-memory store, state is lost on restart")
	default:
		if err := a.connect(ctx, cfg); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	if err := a.RoomRepo.EnsureIndexes(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	policy, err := service.LockPolicyByName(cfg.LockPolicy)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Hub = ws.NewHub()
	a.AuthService = service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	a.RoomService = service.NewRoomService(a.RoomRepo, a.RoomCache, cfg.PublicBaseURL)
	a.ChatService = service.NewChatService(a.ChatRepo)
	a.WhiteboardService = service.NewWhiteboardService(a.WhiteboardRepo, policy)
	a.BookingService = service.NewBookingService(a.BookingRepo, a.RoomService, a.Locker)

	// Hub implements service.Broadcaster
	a.ChatService.SetBroadcaster(a.Hub)
	a.WhiteboardService.SetBroadcaster(a.Hub)
	a.BookingService.SetBroadcaster(a.Hub)

	log.Info().Str("module", "app").Str("store", cfg.Store).Str("lock_policy", policy.Name()).Msg("app initialized")
	return a, nil
}

func (a *App) connect(ctx context.Context, cfg *config.Config) error {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, mongoClient.Disconnect)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Info().Str("module", "app").Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)
	a.BookingRepo = repository.NewBookingRepo(db)
	a.RoomRepo = repository.NewRoomRepo(db)
	a.ChatRepo = repository.NewChatRepo(db)
	a.WhiteboardRepo = repository.NewWhiteboardRepo(db)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	log.Info().Str("module", "app").Str("addr", cfg.RedisAddr()).Msg("connected to Redis")

	a.RoomCache = cache.NewRoomCache(rdb)
	a.Presence = cache.NewPresenceCache(rdb, cfg.PresenceTTL)
	a.Locker = cache.NewBookingLocker(rdb, cfg.BookingLock)
	return nil
}

// Close releases backend connections in reverse order
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Str("module", "app").Msg("close failed")
		}
	}
	a.closers = nil
}

// WSSettings converts the ws config block into handler settings
func (a *App) WSSettings() ws.Settings {
	return ws.Settings{
		ReadLimit:  a.Config.WS.ReadLimit,
		PongWait:   a.Config.WS.PongWait,
		PingPeriod: a.Config.WS.PingPeriod,
		WriteWait:  a.Config.WS.WriteWait,
		SendBuffer: a.Config.WS.SendBuffer,
	}
}
