package codespace

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/model"
)

// CodeSpace is a durable codespace whose hot fields are served from the cache
// when a live entry exists. Obtain one from Service.Get or Service.Create.
type CodeSpace struct {
	row    model.CodeSpace
	cache  cache.Store
	logger *slog.Logger
}

func (c *CodeSpace) ID() string           { return c.row.ID }
func (c *CodeSpace) OwnerID() string      { return c.row.OwnerID }
func (c *CodeSpace) CreatedAt() time.Time { return c.row.CreatedAt }
func (c *CodeSpace) UpdatedAt() time.Time { return c.row.UpdatedAt }

// Durable returns the row as last loaded from or written to the durable
// store, without the cache overlay.
func (c *CodeSpace) Durable() model.CodeSpace {
	return c.row
}

// Name returns the live name.
func (c *CodeSpace) Name(ctx context.Context) string {
	return c.field(ctx, FieldName)
}

// Code returns the live code.
func (c *CodeSpace) Code(ctx context.Context) string {
	return c.field(ctx, FieldCode)
}

// field reads a hot field from the cache, falling back to the durable value
// when the entry or field is missing or the cache cannot be reached.
func (c *CodeSpace) field(ctx context.Context, name string) string {
	durable := textFields[name].get(&c.row)
	v, ok, err := c.cache.HGet(ctx, c.row.ID, name)
	if err != nil {
		c.logger.Warn("cache read failed, serving durable value",
			"codespace", c.row.ID, "field", name, "error", err)
		return durable
	}
	if !ok {
		return durable
	}
	return v
}

// Snapshot returns the row with every hot field overlaid by its live value,
// using a single cache round trip.
func (c *CodeSpace) Snapshot(ctx context.Context) model.CodeSpace {
	snap := c.row
	live, err := c.cache.HGetAll(ctx, c.row.ID)
	if err != nil {
		c.logger.Warn("cache read failed, serving durable values", "codespace", c.row.ID, "error", err)
		return snap
	}
	for _, f := range HotFields {
		if v, ok := live[f]; ok {
			textFields[f].set(&snap, v)
		}
	}
	return snap
}

// View returns the API representation with live hot-field values.
func (c *CodeSpace) View(ctx context.Context) model.CodeSpaceView {
	snap := c.Snapshot(ctx)
	return model.CodeSpaceView{
		ID:        snap.ID,
		Name:      snap.Name,
		Code:      snap.Code,
		CreatedAt: &snap.CreatedAt,
		UpdatedAt: &snap.UpdatedAt,
	}
}

// Set assigns a settable hot field. The row value changes in memory and, if
// the codespace is cached, the cache field changes too. Persisting the row is
// the caller's job (see Service.Update).
func (c *CodeSpace) Set(ctx context.Context, field, value string) error {
	if !isSettable(field) {
		return fmt.Errorf("%w: %q cannot be changed through this path", ErrInvalidField, field)
	}
	if field == FieldName {
		if value == "" || utf8.RuneCountInString(value) > MaxNameLength {
			return fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalidField, MaxNameLength)
		}
	}
	textFields[field].set(&c.row, value)
	if _, err := c.cache.HSetIfExists(ctx, c.row.ID, field, value); err != nil {
		return unavailable("set "+field, err)
	}
	return nil
}

// SetName is Set for the name field.
func (c *CodeSpace) SetName(ctx context.Context, name string) error {
	return c.Set(ctx, FieldName, name)
}

// SetCode is the live-edit path: it writes code to the cache entry only and
// leaves the row untouched until the next Flush. It fails with ErrNotCached
// when there is no live entry.
func (c *CodeSpace) SetCode(ctx context.Context, code string) error {
	ok, err := c.cache.HSetIfExists(ctx, c.row.ID, FieldCode, code)
	if err != nil {
		return unavailable("set code", err)
	}
	if !ok {
		return ErrNotCached
	}
	return nil
}
