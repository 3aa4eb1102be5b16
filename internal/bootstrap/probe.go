package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/config"
)

const probeTimeout = 5 * time.Second

// ProbeCollaborators checks the external collaborators on startup. Failures
// are logged, not fatal: the gateway degrades to its local-recovery paths
// (unknown sessions, empty membership sets) rather than refusing to start.
func ProbeCollaborators(lc fx.Lifecycle, cfg config.Config, rdb redis.UniversalClient, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			probeHTTP(probeCtx, "identity provider", cfg.IdentityBaseURL, logger)
			probeHTTP(probeCtx, "backend service", cfg.BackendBaseURL, logger)

			if err := rdb.Ping(probeCtx).Err(); err != nil {
				logger.Warn("selection store unreachable at startup", zap.Error(err))
			}
			return nil
		},
	})
}

func probeHTTP(ctx context.Context, name, baseURL string, logger *zap.Logger) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		logger.Warn("collaborator probe build failed", zap.String("collaborator", name), zap.Error(err))
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Warn("collaborator unreachable at startup", zap.String("collaborator", name), zap.Error(err))
		return
	}
	resp.Body.Close()
	logger.Info("collaborator reachable", zap.String("collaborator", name), zap.Int("status", resp.StatusCode))
}
