// Package server wires configuration, storage and services into the running
// Neexa backend: the JSON API over HTTP and the gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/auth"
	"github.com/neexa/neexa-backend/internal/server/config"
	"github.com/neexa/neexa-backend/internal/server/httpapi"
	"github.com/neexa/neexa-backend/internal/server/notify"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/ratelimit"
	"github.com/neexa/neexa-backend/internal/server/services"
	"github.com/neexa/neexa-backend/internal/server/shared/db"
	"github.com/redis/go-redis/v9"

	gs "github.com/neexa/neexa-backend/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    db.Store
	redis    *redis.Client
	limiter  ratelimit.Limiter
	issuer   *auth.Issuer
	accounts *services.AccountService
	resets   *services.ResetService
}

// OpenStore returns the store selected by the DSN. A Postgres store is
// migrated first when migrate is set.
func OpenStore(ctx context.Context, c *config.Config, migrate bool) (db.Store, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return db.NewMemoryStore(), nil
	}

	s, err := db.OpenPostgres(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("db migration error: %w", err)
		}
	}
	return s, nil
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	gin.SetMode(c.GinMode)

	store, err := OpenStore(context.Background(), c, true)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, store: store}
	app.limiter = app.newLimiter()
	notifier, err := app.newNotifier()
	if err != nil {
		app.Close()
		return nil, err
	}

	hasher := password.NewHasher(c.BcryptCost)
	app.issuer = auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	app.accounts = services.NewAccountService(store, hasher, app.issuer, logger,
		services.WithLockoutPolicy(c.LockoutThreshold, c.LockoutDuration))
	app.resets = services.NewResetService(store, hasher, notifier, logger,
		services.WithResetTTL(c.ResetTokenValidityDuration),
		services.WithResetLinkBase(c.ResetLinkBaseURL))

	return app, nil
}

// Accounts exposes the account service to operator tooling.
func (app *App) Accounts() *services.AccountService {
	return app.accounts
}

func (app *App) newNotifier() (notify.Notifier, error) {
	console := notify.NewLogNotifier(app.logger)
	if app.config.SMTPHost == "" {
		return console, nil
	}
	c := app.config
	n, err := notify.NewSMTPNotifier(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.SMTPFrom, console, app.logger)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (app *App) newLimiter() ratelimit.Limiter {
	c := app.config
	if c.RedisAddr == "" {
		return ratelimit.NewLocalLimiter(c.RateLimitRequests, c.RateLimitWindow)
	}
	app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	return ratelimit.NewRedisLimiter(app.redis, "neexa:ratelimit:", c.RateLimitRequests, c.RateLimitWindow)
}

// Handler returns the JSON API.
func (app *App) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Options{
		Accounts:       app.accounts,
		Resets:         app.resets,
		Issuer:         app.issuer,
		Limiter:        app.limiter,
		Logger:         app.logger,
		RequestTimeout: app.config.RequestTimeout,
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger, app.store)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is canceled, a signal arrives or a server fails,
// then waits for pending reset mails and releases the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.resets.Wait()
	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the store and the Redis client.
func (app *App) Close() {
	ctx := context.Background()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.store.Close(); err != nil {
		app.logger.Warn(ctx, "store close", "error", err)
	}
}
