package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionPruner deletes session audit rows whose expiry lies beyond the
// retention window.
type SessionPruner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSessionPruner constructs a SessionPruner.
func NewSessionPruner(pool *pgxpool.Pool, logger *slog.Logger) *SessionPruner {
	return &SessionPruner{pool: pool, logger: logger}
}

// Handle processes TaskSessionPrune tasks.
func (p *SessionPruner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SessionPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = 90 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-payload.Retention)
	tag, err := p.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		p.logger.Error("prune sessions", slog.Any("error", err))
		return err
	}
	p.logger.Info("pruned sessions", slog.Int64("rows", tag.RowsAffected()), slog.Time("cutoff", cutoff))
	return nil
}
