package usersapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/users-api/internal/cache"
	"github.com/magabrotheeeer/users-api/internal/config"
	"github.com/magabrotheeeer/users-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/users-api/internal/lib/jwt"
	liblogger "github.com/magabrotheeeer/users-api/internal/lib/logger"
	"github.com/magabrotheeeer/users-api/internal/lib/password"
	"github.com/magabrotheeeer/users-api/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/users-api/internal/lib/sl"
	"github.com/magabrotheeeer/users-api/internal/metrics"
	"github.com/magabrotheeeer/users-api/internal/migrations"
	authservice "github.com/magabrotheeeer/users-api/internal/services/auth"
	usersservice "github.com/magabrotheeeer/users-api/internal/services/users"
	"github.com/magabrotheeeer/users-api/internal/storage/mongostore"
	"github.com/magabrotheeeer/users-api/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// userStore объединяет операции PostgreSQL- и MongoDB-хранилищ.
type userStore interface {
	authservice.UserRepository
	usersservice.UserRepository
	State(ctx context.Context) int
}

type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []func(ctx context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	db, err := a.openStorage(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var userCache usersservice.Cache
	if cfg.RedisConnection.Addr != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, err
		}
		userCache = cacheRedis
		a.onClose(func(context.Context) error { return cacheRedis.Close() })
	} else {
		logger.Warn("redis address is empty, user cache disabled")
	}

	publisher, err := a.openPublisher(ctx, cfg.RabbitMQ)
	if err != nil {
		a.close()
		return nil, err
	}

	hasher := password.NewHasher(cfg.Security.HashSalt)
	authService := authservice.NewAuthService(
		logger,
		db,
		hasher,
		jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL.Duration()),
		password.NewResetGenerator(cfg.Security.CryptoRounds),
		publisher,
		userCache,
		authservice.Options{
			ResetTTL:   cfg.Security.ResetTokenTTL,
			ResetAsOTP: cfg.Security.ResetAsOTP,
		},
	)
	userService := usersservice.NewUserService(logger, db, userCache, hasher, cfg.RedisConnection.TTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Auth:            authService,
		Users:           userService,
		DB:              db,
		Metrics:         metrics.New(prometheus.DefaultRegisterer),
		Limiter:         middlewarectx.NewRateLimiter(cfg.HTTPServer.RateLimitMax, cfg.HTTPServer.RateLimitWindow),
		CORSOrigin:      cfg.HTTPServer.CORSOrigin,
		AdminOnlyDelete: cfg.HTTPServer.UsersAdminOnly,
		Dev:             liblogger.IsDevelopment(cfg.Env),
	})

	a.server = &http.Server{
		Addr:         cfg.HTTPServer.Address(),
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Database) (userStore, error) {
	const op = "usersapi.openStorage"

	switch cfg.Driver {
	case config.DriverMongo:
		db, err := mongostore.New(ctx, cfg.MongoURI(), cfg.Name)
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)
		a.logger.Info("connected to mongodb", slog.String("database", cfg.Name))
		return db, nil
	case config.DriverPostgres, "":
		db, err := repository.New(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return db.Close() })
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			a.close()
			return nil, err
		}
		a.logger.Info("connected to postgres", slog.String("database", cfg.Name))
		return db, nil
	default:
		return nil, fmt.Errorf("%s: unknown database driver %q", op, cfg.Driver)
	}
}

func (a *App) openPublisher(ctx context.Context, cfg config.RabbitMQ) (*rabbitmq.Publisher, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.NotificationQueues(cfg.Queue, cfg.RoutingKey))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.onClose(closeAMQP(ch, conn))
	return rabbitmq.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey), nil
}

func closeAMQP(ch *amqp.Channel, conn *amqp.Connection) func(context.Context) error {
	return func(context.Context) error {
		return errors.Join(ch.Close(), conn.Close())
	}
}

func (a *App) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close освобождает ресурсы в обратном порядке открытия.
func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("failed to release resource", sl.Err(err))
		}
	}
	a.closers = nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}
