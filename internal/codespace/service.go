// Package codespace overlays a cache on top of the durable codespace store.
// Hot fields (name and code) are read from the cache when a live entry
// exists and written there by the live-edit path; Flush copies them back to
// the durable row. Lifecycle hooks seed and evict cache entries so the two
// stores agree on which codespaces exist.
package codespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/store"
)

// Default cache lifetimes.
const (
	DefaultActiveTTL    = time.Hour
	DefaultEphemeralTTL = 15 * time.Minute
)

// Repository is the durable side of the overlay. *store.Store implements it.
type Repository interface {
	CreateCodeSpace(ctx context.Context, cs *model.CodeSpace) error
	GetCodeSpace(ctx context.Context, id string) (*model.CodeSpace, error)
	UpdateCodeSpace(ctx context.Context, cs *model.CodeSpace) error
	DeleteCodeSpace(ctx context.Context, id string) error
	ListCodeSpaces(ctx context.Context, ownerID string, limit, offset int) ([]model.CodeSpace, error)
	CountCodeSpaces(ctx context.Context, ownerID string) (int, error)
	ListCodeSpaceIDs(ctx context.Context, ownerID string) ([]string, error)
}

// Options tune the overlay.
type Options struct {
	// ActiveTTL is re-armed on every durable fetch and create.
	ActiveTTL time.Duration
}

// Service is the entry point for durable codespaces.
type Service struct {
	repo   Repository
	cache  cache.Store
	hooks  *hooks
	logger *slog.Logger
}

// NewService checks the hot-field configuration and wires the lifecycle
// hooks. A nil logger discards output.
func NewService(repo Repository, c cache.Store, opts Options, logger *slog.Logger) (*Service, error) {
	if err := ValidateHotFields(HotFields); err != nil {
		return nil, err
	}
	if opts.ActiveTTL == 0 {
		opts.ActiveTTL = DefaultActiveTTL
	}
	if opts.ActiveTTL < 0 {
		return nil, fmt.Errorf("active ttl must be positive, got %s", opts.ActiveTTL)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:   repo,
		cache:  c,
		hooks:  &hooks{cache: c, activeTTL: opts.ActiveTTL, logger: logger},
		logger: logger,
	}, nil
}

// ActiveTTL is the lifetime re-armed on cache entries of durable codespaces.
func (s *Service) ActiveTTL() time.Duration { return s.hooks.activeTTL }

func (s *Service) wrap(row *model.CodeSpace) *CodeSpace {
	return &CodeSpace{row: *row, cache: s.cache, logger: s.logger}
}

// Get loads a codespace, seeding its cache entry if absent and re-arming the
// active TTL. A cache failure while seeding is logged and the durable values
// are served.
func (s *Service) Get(ctx context.Context, id string) (*CodeSpace, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hooks.afterFetch(ctx, row); err != nil {
		s.logger.Warn("cache seed after fetch failed", "codespace", id, "error", err)
	}
	return s.wrap(row), nil
}

// Find loads a codespace without firing the fetch hook, so no cache entry is
// seeded and no TTL is re-armed. Use it for ownership checks ahead of
// operations that require an existing live entry.
func (s *Service) Find(ctx context.Context, id string) (*CodeSpace, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.wrap(row), nil
}

func (s *Service) load(ctx context.Context, id string) (*model.CodeSpace, error) {
	row, err := s.repo.GetCodeSpace(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("load codespace", err)
	}
	return row, nil
}

// Create inserts a codespace for ownerID. Empty name and code fall back to
// DefaultName and DefaultCode.
func (s *Service) Create(ctx context.Context, ownerID, name, code string) (*CodeSpace, error) {
	created := time.Now().UTC().Truncate(time.Microsecond)
	if name == "" {
		name = DefaultName(created)
	}
	if code == "" {
		code = DefaultCode
	}
	row := &model.CodeSpace{OwnerID: ownerID, Name: name, Code: code, CreatedAt: created}
	if len([]rune(name)) > MaxNameLength {
		return nil, fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalidField, MaxNameLength)
	}
	if err := s.repo.CreateCodeSpace(ctx, row); err != nil {
		return nil, unavailable("create codespace", err)
	}
	if err := s.hooks.afterCreate(ctx, row); err != nil {
		s.logger.Warn("cache seed after create failed", "codespace", row.ID, "error", err)
	}
	s.logger.Info("codespace created", "codespace", row.ID, "owner", ownerID)
	return s.wrap(row), nil
}

// Update applies settable hot-field changes and persists the row. Changing
// any other field, code included, fails with ErrInvalidField.
func (s *Service) Update(ctx context.Context, cs *CodeSpace, changes map[string]string) error {
	for f := range changes {
		if !isSettable(f) {
			return fmt.Errorf("%w: %q cannot be changed through this path", ErrInvalidField, f)
		}
	}
	for f, v := range changes {
		if err := cs.Set(ctx, f, v); err != nil {
			return err
		}
	}
	return s.persist(ctx, &cs.row)
}

// Rename is Update for the name field.
func (s *Service) Rename(ctx context.Context, cs *CodeSpace, name string) error {
	return s.Update(ctx, cs, map[string]string{FieldName: name})
}

// Flush copies the live hot-field values of id into its durable row and
// returns the updated codespace. The cache entry and its TTL are left alone.
// Flush fails with ErrNotCached when there is no live entry and never seeds
// one.
func (s *Service) Flush(ctx context.Context, id string) (*CodeSpace, error) {
	live, err := s.cache.HGetAll(ctx, id)
	if err != nil {
		return nil, unavailable("read live fields", err)
	}
	if len(live) == 0 {
		return nil, ErrNotCached
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, f := range HotFields {
		if v, ok := live[f]; ok {
			textFields[f].set(row, v)
		}
	}
	if err := s.persist(ctx, row); err != nil {
		return nil, err
	}
	s.logger.Debug("codespace flushed", "codespace", id)
	return s.wrap(row), nil
}

func (s *Service) persist(ctx context.Context, row *model.CodeSpace) error {
	err := s.repo.UpdateCodeSpace(ctx, row)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("save codespace", err)
	}
	return nil
}

// Delete removes the durable row and then its cache entry. When eviction
// fails the row is already gone and ErrStoreUnavailable is returned; the
// entry expires on its own.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.DeleteCodeSpace(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("delete codespace", err)
	}
	if err := s.hooks.afterDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("codespace deleted", "codespace", id)
	return nil
}

// List returns one page of an owner's codespaces plus the owner's total.
// Listing does not touch the cache: results carry live values where entries
// exist but no entry is seeded.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]*CodeSpace, int, error) {
	total, err := s.repo.CountCodeSpaces(ctx, ownerID)
	if err != nil {
		return nil, 0, unavailable("count codespaces", err)
	}
	rows, err := s.repo.ListCodeSpaces(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, unavailable("list codespaces", err)
	}
	out := make([]*CodeSpace, len(rows))
	for i := range rows {
		out[i] = s.wrap(&rows[i])
	}
	return out, total, nil
}

// PurgeOwner evicts the cache entries of every codespace ownerID has. Call
// it before deleting the owner, whose rows go with a cascading delete that
// bypasses the hooks.
func (s *Service) PurgeOwner(ctx context.Context, ownerID string) error {
	ids, err := s.repo.ListCodeSpaceIDs(ctx, ownerID)
	if err != nil {
		return unavailable("list codespace ids", err)
	}
	for _, id := range ids {
		if err := s.hooks.afterDelete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks both backing stores.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.cache.Ping(ctx); err != nil {
		return err
	}
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
