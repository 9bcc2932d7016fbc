package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/audit"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/firestore"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/identitytoolkit"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/router"
)

const jwtIssuer = "identity-bridge"

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(rabbitURL, exchange string) (auth.EventPublisher, error)

	NewProfileStore func(ctx context.Context, cfg *config.Config) (ProfileBackend, error)

	NewIdentityProvider func(cfg *config.Config) auth.IdentityProvider

	NewRouter func(router.Deps) (http.Handler, error)
}

// ProfileBackend is a constructed profile store plus what bootstrap needs
// to probe and release it.
type ProfileBackend struct {
	Store auth.ProfileStore
	Ping  func(ctx context.Context) error
	Close func()
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) redis (optional in dev)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		switch {
		case err == nil:
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		case cfg.IsDev():
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-memory sessions")
			_ = c.Close()
		default:
			_ = c.Close()
			return fail(fmt.Errorf("redis: %w", err))
		}
	}

	// 2) profile store (+ read-through cache)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := deps.NewProfileStore(ctx, cfg)
	cancel()
	if err != nil {
		return fail(err)
	}
	if backend.Close != nil {
		cleanupFns = append(cleanupFns, backend.Close)
	}
	profiles := backend.Store
	if redisCli != nil && cfg.ProfileCacheTTL > 0 {
		profiles = redis.NewCachedProfileStore(profiles, redisCli, cfg.ProfileCacheTTL)
	}
	logger.Logger.Info().Str("backend", cfg.ProfileStore).Msg("profile store ready")

	// 3) session store
	var sessions auth.SessionStore
	if redisCli != nil {
		sessions = redis.NewSessionStore(redisCli)
	} else {
		sessions = memory.NewSessionStore()
	}

	// 4) publisher
	var pub auth.EventPublisher
	if cfg.RabbitURL != "" {
		pub, err = deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
	} else {
		err = fmt.Errorf("RABBIT_URL not set")
	}
	if err != nil {
		if !cfg.IsDev() {
			return fail(err)
		}
		logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		pub = memory.NewNoopPublisher()
	}
	if c, ok := pub.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 5) identity provider + security
	idp := deps.NewIdentityProvider(cfg)
	signer := security.NewJWTSigner(cfg.JWTSecret, jwtIssuer)

	// 6) service
	authSvc := auth.NewService(
		idp,
		profiles,
		sessions,
		signer,
		pub,
		auth.Config{
			AccessTTL:  cfg.AccessTokenTTL,
			SessionTTL: cfg.SessionTTL,
		},
	).WithAudit(audit.New(logger.Logger).Record)

	// 7) handlers + middleware
	secureCookies := !cfg.IsDev()

	authH := http_handlers.NewAuthHandler(authSvc, authSvc.SessionTTL(), secureCookies)
	usersH := http_handlers.NewUsersHandler(authSvc)

	checks := []http_handlers.Check{{Name: "profiles", Ping: backend.Ping}}
	if redisCli != nil {
		checks = append(checks, http_handlers.Check{Name: "redis", Ping: redisCli.Ping})
	}
	healthH := http_handlers.NewHealthHandler(checks...)

	authMW := middleware.Auth(signer, authSvc, response.WriteError)

	// fail-open; in-process limiter without redis
	var limiter middleware.RateLimiter
	if redisCli != nil {
		limiter = redis.NewFixedWindowLimiter(redisCli)
	}
	rateMW := middleware.RateLimitFixedWindow(limiter, middleware.FixedWindowConfig{
		RouteKey: "auth.credentials",
		Limit:    cfg.AuthRateLimit,
		Window:   cfg.AuthRateWindow,
	}, response.WriteError)

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health:         healthH,
		Auth:           authH,
		Users:          usersH,
		AuthMW:         authMW,
		AuthRateMW:     rateMW,
		AllowedOrigins: cfg.FrontendOrigins,
	})
	if err != nil {
		return fail(err)
	}

	// 9) server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	// User streams never go idle, so Shutdown would wait out its deadline.
	// Every request context hangs off baseCtx and is cancelled on shutdown.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	srv.BaseContext = func(net.Listener) context.Context { return baseCtx }
	srv.RegisterOnShutdown(cancelBase)
	cleanupFns = append(cleanupFns, cancelBase)

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (auth.EventPublisher, error) {
			p, err := rabbitmq_pub.NewPublisher(url, exchange)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewProfileStore:     openProfileStore,
		NewIdentityProvider: newIdentityProvider,
		NewRouter:           router.New,
	}
}

func newIdentityProvider(cfg *config.Config) auth.IdentityProvider {
	return identitytoolkit.New(identitytoolkit.Config{
		APIKey:       cfg.FirebaseAPIKey,
		EmulatorHost: cfg.AuthEmulatorHost,
		RequestURI:   cfg.IdPRequestURI,
		Timeout:      cfg.ProviderTimeout,
	})
}

func openProfileStore(ctx context.Context, cfg *config.Config) (ProfileBackend, error) {
	switch cfg.ProfileStore {
	case config.StoreFirestore:
		client, err := firestore.Open(ctx, cfg.FirebaseProjectID, cfg.GoogleCredentials)
		if err != nil {
			return ProfileBackend{}, err
		}
		store := firestore.NewProfileStore(client)
		return ProfileBackend{
			Store: store,
			Ping:  store.Ping,
			Close: func() { _ = client.Close() },
		}, nil

	case config.StorePostgres:
		db, err := config.NewDB(cfg.DBAddr, cfg.IsDev())
		if err != nil {
			return ProfileBackend{}, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return ProfileBackend{}, err
		}
		repo := postgres.NewProfileRepo(db)
		return ProfileBackend{
			Store: repo,
			Ping:  repo.Ping,
			Close: func() { _ = db.Close() },
		}, nil

	case config.StoreMemory:
		return ProfileBackend{Store: memory.NewProfileStore()}, nil

	default:
		return ProfileBackend{}, fmt.Errorf("unknown profile store %q", cfg.ProfileStore)
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
