package app

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"devblog/internal/api"
	"devblog/internal/cache"
	"devblog/internal/config"
	"devblog/internal/db"
	"devblog/internal/flow"
	"devblog/internal/gateway"
	"devblog/internal/session"
)

// UI is what the flows need from whoever presents them.
type UI interface {
	flow.Notifier
	flow.Navigator
	flow.Confirmer
}

// App is the wired client: one session, one gateway, one cache and the
// flows over them.
type App struct {
	Session *session.Session
	Gateway *gateway.Gateway
	Cache   *cache.Cache
	Auth    *flow.Auth
	Posts   *flow.Posts

	closers []func() error
}

// New opens the configured session backend and wires the client.
func New(ctx context.Context, cfg *config.Config, ui UI, opts ...gateway.Option) (*App, error) {
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := NewWithStore(cfg, store, ui, opts...)
	a.closers = append(a.closers, closeStore)
	return a, nil
}

// NewWithStore wires the client over an already opened store.
func NewWithStore(cfg *config.Config, store session.Store, ui UI, opts ...gateway.Option) *App {
	c := cache.New(cache.Options{
		StaleAfter: cfg.CacheStaleAfter,
		GCAfter:    cfg.CacheGCAfter,
	})

	sess := session.New(store)
	// the cached user belongs to whichever token was current when it was fetched
	sess.OnChange(func(bool) {
		c.Remove(cache.AuthUser)
	})

	opts = append(opts, gateway.WithUnauthorizedHandler(func() {
		glog.Info("session rejected by server, signing out")
		ui.Navigate(flow.RouteLogin)
	}))
	gw := gateway.New(cfg.APIURL, cfg.Timeout, sess, opts...)

	auth := flow.NewAuth(api.NewAuthAPI(gw), sess, c, ui, ui)
	posts := flow.NewPosts(api.NewPostsAPI(gw), auth, c, ui, ui, ui)

	return &App{
		Session: sess,
		Gateway: gw,
		Cache:   c,
		Auth:    auth,
		Posts:   posts,
		closers: []func() error{func() error { c.Close(); return nil }},
	}
}

// Close releases the cache and the session backend.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore connects the session backend named by cfg.SessionBackend. The
// returned func closes the connection.
func OpenStore(ctx context.Context, cfg *config.Config) (session.Store, func() error, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return session.NewMemoryStore(), func() error { return nil }, nil

	case config.BackendRedis:
		client := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return session.NewRedisStore(client, cfg.SessionProfile, cfg.SessionTTL), client.Close, nil

	case config.BackendMySQL:
		gdb, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("mysql handle: %w", err)
		}
		store, err := session.NewSQLStore(gdb, cfg.SessionProfile, cfg.SessionTTL)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return store, sqlDB.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
