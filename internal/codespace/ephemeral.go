package codespace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/model"
)

// EphemeralPrefix marks the IDs of anonymous, cache-only codespaces.
const EphemeralPrefix = "tmp-"

// ephemeralIDField stores the ID inside the hash so an entry is never an
// empty hash, even when its code is empty.
const ephemeralIDField = "id"

// IsEphemeralID reports whether id belongs to an ephemeral codespace.
func IsEphemeralID(id string) bool {
	return strings.HasPrefix(id, EphemeralPrefix)
}

// NormalizeEphemeralID prefixes id with EphemeralPrefix unless it already
// carries it.
func NormalizeEphemeralID(id string) string {
	if IsEphemeralID(id) {
		return id
	}
	return EphemeralPrefix + id
}

// Ephemeral is an anonymous codespace that exists only while its cache
// entry is alive.
type Ephemeral struct {
	ID   string
	Code string
}

// NewEphemeral builds an unsaved ephemeral codespace. An empty id gets a
// fresh random one and a nil code gets DefaultCode.
func NewEphemeral(id string, code *string) *Ephemeral {
	if id == "" {
		id = uuid.NewString()
	}
	e := &Ephemeral{ID: NormalizeEphemeralID(id), Code: DefaultCode}
	if code != nil {
		e.Code = *code
	}
	return e
}

// View returns the API representation.
func (e *Ephemeral) View() model.CodeSpaceView {
	return model.CodeSpaceView{ID: e.ID, Code: e.Code, Ephemeral: true}
}

func (e *Ephemeral) fields() map[string]string {
	return map[string]string{ephemeralIDField: e.ID, FieldCode: e.Code}
}

// EphemeralStore keeps ephemeral codespaces in the cache. Unlike durable
// codespaces there is no fallback: every cache failure is returned as
// ErrStoreUnavailable.
type EphemeralStore struct {
	cache  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewEphemeralStore returns a store arming ttl on every save and get. A
// zero ttl selects DefaultEphemeralTTL.
func NewEphemeralStore(c cache.Store, ttl time.Duration, logger *slog.Logger) (*EphemeralStore, error) {
	if ttl == 0 {
		ttl = DefaultEphemeralTTL
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ephemeral ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EphemeralStore{cache: c, ttl: ttl, logger: logger}, nil
}

// TTL returns the ephemeral window.
func (s *EphemeralStore) TTL() time.Duration { return s.ttl }

// Create builds and saves an ephemeral codespace. When the id is already
// live the stored codespace is returned unchanged, so the result always
// reflects what the cache holds.
func (s *EphemeralStore) Create(ctx context.Context, id string, code *string) (*Ephemeral, error) {
	e := NewEphemeral(id, code)
	written, err := s.Save(ctx, e)
	if err != nil {
		return nil, err
	}
	if written {
		return e, nil
	}
	return s.Get(ctx, e.ID)
}

// Save writes e only if nothing is stored under its ID yet and reports
// whether it did. The ephemeral window is re-armed either way.
func (s *EphemeralStore) Save(ctx context.Context, e *Ephemeral) (bool, error) {
	written, err := s.cache.HSetIfAbsent(ctx, e.ID, e.fields(), s.ttl)
	if err != nil {
		return false, unavailable("save ephemeral codespace", err)
	}
	if !written {
		if err := s.cache.Expire(ctx, e.ID, s.ttl); err != nil {
			return false, unavailable("arm ephemeral ttl", err)
		}
	}
	s.logger.Debug("ephemeral codespace saved", "codespace", e.ID, "written", written)
	return written, nil
}

// Get loads an ephemeral codespace and extends its lifetime.
func (s *EphemeralStore) Get(ctx context.Context, id string) (*Ephemeral, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	m, err := s.cache.HGetAll(ctx, id)
	if err != nil {
		return nil, unavailable("load ephemeral codespace", err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	if err := s.cache.Expire(ctx, id, s.ttl); err != nil {
		return nil, unavailable("arm ephemeral ttl", err)
	}
	return &Ephemeral{ID: id, Code: m[FieldCode]}, nil
}

// SetCode replaces the code of a live ephemeral codespace. The TTL is not
// touched.
func (s *EphemeralStore) SetCode(ctx context.Context, id, code string) error {
	ok, err := s.cache.HSetIfExists(ctx, id, FieldCode, code)
	if err != nil {
		return unavailable("set ephemeral code", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes an ephemeral codespace. Missing entries are not an error.
func (s *EphemeralStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Del(ctx, id); err != nil {
		return unavailable("delete ephemeral codespace", err)
	}
	return nil
}
