// Package app wires configuration, storage, notifications and Telegram into
// a runnable storefront bot and provides the shared command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/config"
	"telegram-storefront-bot/internal/database"
	"telegram-storefront-bot/internal/media"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/notify"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/prefs"
	"telegram-storefront-bot/internal/reviews"
	"telegram-storefront-bot/internal/session"
	"telegram-storefront-bot/internal/telegram"
)

const (
	redisAttempts = 5
	lockTTL       = 30 * time.Second
	sweepInterval = time.Minute
)

// Storefront describes one bot binary.
type Storefront struct {
	Name  string
	Short string
	// Prices are seeded on every start; existing rows win.
	Prices func() []catalog.Price
	Graph  func(rt *Runtime, bot *telegram.Bot) *nav.Graph
}

// Runtime holds the services shared by the graph and the commands.
type Runtime struct {
	Config  *config.Config
	Logger  *logrus.Logger
	DB      *gorm.DB
	Orders  *orders.OrderManager
	Catalog *catalog.Catalog
	Reviews *reviews.Repository
	Prefs   *prefs.Store
	// Redis and Archive are nil unless configured and connected.
	Redis   *redis.Client
	Archive *media.Archive

	closers []func() error
}

// Open connects the database and migrates it.
func Open(cfg *config.Config, logger *logrus.Logger) (*Runtime, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Orders:  orders.NewOrderManager(db),
		Catalog: catalog.New(db),
		Reviews: reviews.NewRepository(db),
		Prefs:   prefs.NewStore(db),
	}
	rt.closers = append(rt.closers, func() error { return database.Close(db) })
	return rt, nil
}

// Close releases everything in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) Seed(ctx context.Context, prices []catalog.Price) error {
	return rt.Catalog.Seed(ctx, prices)
}

// Connect brings up the optional services: redis when sessions or
// notifications need it, and the proof archive when S3 is configured.
func (rt *Runtime) Connect(ctx context.Context) error {
	cfg := rt.Config
	if cfg.RedisAddr != "" {
		rdb, err := connectRedis(ctx, cfg, rt.Logger)
		if err != nil {
			return err
		}
		rt.Redis = rdb
		rt.closers = append(rt.closers, rdb.Close)
	}

	if cfg.ArchiveEnabled() {
		archive, err := media.New(cfg)
		if err != nil {
			return err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			// Orders work without the archive; proofs stay in Telegram.
			config.LogError(rt.Logger, "app", "Connect", cfg.S3Bucket, err)
		} else {
			rt.Archive = archive
		}
	}
	return nil
}

func connectRedis(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	var err error
	for attempt := 1; attempt <= redisAttempts; attempt++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			logger.WithField("addr", cfg.RedisAddr).Info("connected to redis")
			return rdb, nil
		}
		logger.WithFields(logrus.Fields{"attempt": attempt, "error": err.Error()}).Warn("redis ping failed")
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
}

// Sessions returns the configured session store with a matching locker:
// redis sessions are shared between instances, so their lock is too.
func (rt *Runtime) Sessions(ctx context.Context) (nav.SessionStore, nav.Locker, error) {
	cfg := rt.Config
	switch session.StoreType(cfg.SessionStore) {
	case session.StoreTypeRedis:
		if rt.Redis == nil {
			return nil, nil, fmt.Errorf("%w: SESSION_STORE=redis without redis", session.ErrInvalidConfig)
		}
		store, err := session.NewStore(session.StoreTypeRedis, session.WithRedisClient(rt.Redis), session.WithTTL(cfg.SessionTTL))
		if err != nil {
			return nil, nil, err
		}
		return store, session.NewRedisLocker(rt.Redis, lockTTL), nil
	default:
		store := session.NewMemoryStore(cfg.SessionTTL)
		go store.Run(ctx, sweepInterval)
		return store, session.NewKeyedMutex(), nil
	}
}

func (rt *Runtime) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     rt.Config.RedisAddr,
		Password: rt.Config.RedisPassword,
		DB:       rt.Config.RedisDB,
	}
}

// Notifier builds the administrator notifier for NOTIFY_MODE.
func (rt *Runtime) Notifier(sender notify.Sender) notify.Notifier {
	logger := rt.Logger.WithField("component", "notify")
	if len(rt.Config.AdminIDs) == 0 {
		logger.Warn("ADMIN_IDS is empty, order notifications are disabled")
		return notify.Nop{}
	}
	if rt.Config.NotifyMode == "queue" {
		client := asynq.NewClient(rt.redisOpt())
		rt.closers = append(rt.closers, client.Close)
		return notify.NewQueue(client, rt.Config.AdminIDs, logger)
	}
	return notify.NewDirect(sender, rt.Config.AdminIDs, logger)
}

// StartWorker runs the notification worker in this process until Close.
func (rt *Runtime) StartWorker(sender notify.Sender) error {
	srv := asynq.NewServer(rt.redisOpt(), asynq.Config{
		Concurrency: rt.Config.NotifyConcurrency,
		Logger:      rt.Logger.WithField("component", "asynq"),
	})
	if err := srv.Start(notify.NewWorker(sender, rt.Logger).Handler()); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	rt.closers = append(rt.closers, func() error {
		srv.Shutdown()
		return nil
	})
	return nil
}
