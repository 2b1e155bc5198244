package codespace

import (
	"context"
	"log/slog"
	"time"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/model"
)

// hooks keep the cache in step with durable-store lifecycle events. They run
// after the durable operation has committed and before its result reaches
// the caller, and are the only code that creates or removes cache entries
// for durable codespaces.
type hooks struct {
	cache     cache.Store
	activeTTL time.Duration
	logger    *slog.Logger
}

// afterFetch runs after a single row was read.
func (h *hooks) afterFetch(ctx context.Context, row *model.CodeSpace) error {
	return h.seed(ctx, row)
}

// afterCreate runs once, after the first insert of a row.
func (h *hooks) afterCreate(ctx context.Context, row *model.CodeSpace) error {
	return h.seed(ctx, row)
}

// afterDelete removes the cache entry whether or not it exists.
func (h *hooks) afterDelete(ctx context.Context, id string) error {
	if err := h.cache.Del(ctx, id); err != nil {
		return unavailable("evict codespace", err)
	}
	h.logger.Debug("codespace evicted from cache", "codespace", id)
	return nil
}

// seed populates the entry if absent, never overwriting live values, and
// always re-arms the active TTL. A fresh entry gets its TTL in the same
// atomic step as its fields.
func (h *hooks) seed(ctx context.Context, row *model.CodeSpace) error {
	populated, err := h.cache.HSetIfAbsent(ctx, row.ID, hotValues(row), h.activeTTL)
	if err != nil {
		return unavailable("populate cache", err)
	}
	if !populated {
		if err := h.cache.Expire(ctx, row.ID, h.activeTTL); err != nil {
			return unavailable("arm cache ttl", err)
		}
	}
	h.logger.Debug("codespace cache armed",
		"codespace", row.ID, "populated", populated, "ttl", h.activeTTL)
	return nil
}
