package membership

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskhq/desk-session/internal/domain"
)

// Result is a resolved membership load. A load always resolves: success,
// empty, or timeout-forced empty. Epoch carries the session epoch the load
// started under so consumers can discard results superseded by a newer
// session.
type Result struct {
	Epoch       int64
	Memberships []domain.BusinessMembership
	TimedOut    bool
	Err         error
}

// Loader fetches membership sets with an upper bound on waiting. Staleness
// is acceptable, indefinite loading indicators are not.
type Loader struct {
	directory Directory
	timeout   time.Duration
	logger    *zap.Logger
}

// NewLoader creates a membership loader with the configured timeout bound.
func NewLoader(directory Directory, timeout time.Duration, logger *zap.Logger) *Loader {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Loader{directory: directory, timeout: timeout, logger: logger}
}

// Load fetches the membership set for the user. It resolves within the
// timeout bound no matter what the backend does; errors and timeouts
// resolve to the empty set and are logged, never propagated. A late backend
// response loses the race and is dropped. Load performs no persistence of
// its own: the session manager applies the result, including any selection
// clear an empty set implies, behind its epoch check.
func (l *Loader) Load(ctx context.Context, epoch int64, userID string) Result {
	loadCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type outcome struct {
		memberships []domain.BusinessMembership
		err         error
	}
	ch := make(chan outcome, 1)
	go func() {
		memberships, err := l.directory.ListMemberships(loadCtx, userID)
		ch <- outcome{memberships: memberships, err: err}
	}()

	var result Result
	result.Epoch = epoch
	select {
	case out := <-ch:
		if out.err != nil {
			l.logger.Error("membership load failed, resolving empty",
				zap.String("user_id", userID), zap.Int64("epoch", epoch), zap.Error(out.err))
			result.Err = out.err
		} else {
			result.Memberships = out.memberships
		}
	case <-loadCtx.Done():
		l.logger.Warn("membership load exceeded bound, resolving empty",
			zap.String("user_id", userID), zap.Int64("epoch", epoch), zap.Duration("timeout", l.timeout))
		result.TimedOut = true
		result.Err = loadCtx.Err()
	}
	return result
}
