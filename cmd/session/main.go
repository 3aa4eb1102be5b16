package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/deskhq/desk-session/internal/adapter/cache"
	"github.com/deskhq/desk-session/internal/bootstrap"
	"github.com/deskhq/desk-session/internal/config"
	httptransport "github.com/deskhq/desk-session/internal/http"
	"github.com/deskhq/desk-session/internal/http/handler"
	httpmiddleware "github.com/deskhq/desk-session/internal/http/middleware"
	"github.com/deskhq/desk-session/internal/identity"
	"github.com/deskhq/desk-session/internal/membership"
	apimiddleware "github.com/deskhq/desk-session/internal/middleware"
	"github.com/deskhq/desk-session/internal/server"
	"github.com/deskhq/desk-session/internal/session"
	"github.com/deskhq/desk-session/internal/telemetry"
	"github.com/deskhq/desk-session/internal/tenant"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newRedisClient,
			newSelectionStore,
			newIdentityClient,
			newDirectory,
			session.NewRegistry,
			handler.NewSessionHandler,
			newAuthMiddleware,
			newRateLimiter,
			httptransport.NewRouter,
			newHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.ProbeCollaborators, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newSelectionStore(client redis.UniversalClient, cfg config.Config) tenant.SelectionStore {
	return cacheadapter.NewRedisSelectionStore(client, cfg.SelectionTTL)
}

func newIdentityClient(cfg config.Config) identity.Client {
	return identity.NewHTTPClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, nil)
}

func newDirectory(cfg config.Config) membership.Directory {
	return membership.NewHTTPDirectory(cfg.BackendBaseURL, cfg.BackendAPIKey, nil)
}

func newAuthMiddleware(registry *session.Registry) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Registry: registry}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg)
}

func newHTTPServer(router *gin.Engine, logger *zap.Logger) *server.HTTPServer {
	return server.NewHTTPServer(router, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
