package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/rpsduel-go/internal/dependencies/clock"
	"github.com/mcoot/rpsduel-go/internal/dependencies/random"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/push"
	"github.com/mcoot/rpsduel-go/internal/services/auth"
	"github.com/mcoot/rpsduel-go/internal/services/chat"
	"github.com/mcoot/rpsduel-go/internal/services/match"
	"github.com/mcoot/rpsduel-go/internal/services/matchmaking"
	"github.com/mcoot/rpsduel-go/internal/services/rating"
	"github.com/mcoot/rpsduel-go/internal/storage"
	"github.com/mcoot/rpsduel-go/internal/storage/memory"
	redisstorage "github.com/mcoot/rpsduel-go/internal/storage/redis"
	"github.com/mcoot/rpsduel-go/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Event push
	Sink push.Sink
	Hub  *ws.Hub

	// Services
	AuthService   *auth.Service
	RatingService *rating.Service
	MatchEngine   *match.Engine
	Matchmaker    *matchmaking.Service
	ChatRelay     *chat.Relay

	// WSHandler serves the game protocol endpoint; nil in tests that
	// wire their own sink instead of the hub
	WSHandler *ws.Handler

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// MatchConfig holds match engine settings (optional)
	// If zero value, defaults to match.DefaultConfig()
	MatchConfig match.Config
	// RatingConfig holds rating settings (optional)
	// If zero value, defaults to rating.DefaultConfig()
	RatingConfig rating.Config
	// ChatConfig holds chat relay settings (optional)
	// If zero value, defaults to chat.DefaultConfig()
	ChatConfig chat.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	hub := ws.NewHub(logger)
	app := newWithDependencies(store, clk, rnd, hub, cfg, logger)
	app.Hub = hub
	app.WSHandler = ws.NewHandler(app.AuthService, app.Matchmaker, app.MatchEngine, app.ChatRelay, hub, logger)

	// A displaced session's socket is cut off immediately; the read
	// loop has already unregistered by the time an ordinary disconnect
	// releases its session, so this only fires on displacement.
	app.AuthService.OnRelease(func(session *auth.Session) {
		hub.Disconnect(session.PlayerID)
	})

	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, sink push.Sink, cfg Config, logger *slog.Logger) *App {
	matchCfg := cfg.MatchConfig
	if matchCfg.MoveTimeout == 0 {
		matchCfg = match.DefaultConfig()
	}
	ratingCfg := cfg.RatingConfig
	if ratingCfg.KFactor == 0 {
		ratingCfg = rating.DefaultConfig()
	}
	chatCfg := cfg.ChatConfig
	if chatCfg.HistorySize == 0 {
		chatCfg = chat.DefaultConfig()
	}

	// Create services
	authService := auth.New(store, clk, rnd, logger)
	ratingService := rating.New(store, ratingCfg, logger)
	matchEngine := match.New(store, ratingService, sink, clk, matchCfg, logger)
	matchmaker := matchmaking.New(matchEngine, sink, clk, logger)
	chatRelay := chat.New(matchEngine, sink, clk, chatCfg, logger)

	// A released session leaves the queue and forfeits any open match
	authService.OnRelease(func(session *auth.Session) {
		matchmaker.Cancel(session.PlayerID)
		matchEngine.Forfeit(context.Background(), session.PlayerID)
	})

	// A closed match's chat scope can never be rejoined; drop its history
	matchEngine.OnMatchClosed(func(id model.MatchID) {
		chatRelay.DropScope(model.MatchScope(id))
	})

	return &App{
		Storage:       store,
		Clock:         clk,
		Random:        rnd,
		Sink:          sink,
		AuthService:   authService,
		RatingService: ratingService,
		MatchEngine:   matchEngine,
		Matchmaker:    matchmaker,
		ChatRelay:     chatRelay,
		logger:        logger,
	}
}

// RunSweeper periodically abandons matches whose move deadline has
// passed. Blocks until ctx is cancelled; run it in its own goroutine.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.MatchEngine.SweepExpired(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close releases held resources such as storage connections
func (a *App) Close() error {
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
