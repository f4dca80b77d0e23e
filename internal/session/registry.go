package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Skotchmaster/topspin/internal/cart"
	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/storage"
)

var validate = validator.New()

const (
	DefaultMaxSessions = 10000
	DefaultIdleTTL     = 24 * time.Hour
)

type RegistryConfig struct {
	Catalog  *catalog.Catalog
	KV       *storage.Store
	Pricing  cart.Pricing
	PageSize int
	Now      func() time.Time
	// MaxSessions caps live sessions; the least recently used is dropped
	// first. IdleTTL drops sessions not used for that long. Carts survive
	// in KV and are reloaded on the next request.
	MaxSessions int
	IdleTTL     time.Duration
}

// Registry keeps live sessions keyed by id.
type Registry struct {
	cfg RegistryConfig

	mu       sync.Mutex
	sessions *expirable.LRU[uuid.UUID, *Session]
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.PageSize <= 0 {
		cfg.PageSize = catalog.DefaultPageSize
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	return &Registry{
		cfg:      cfg,
		sessions: expirable.NewLRU[uuid.UUID, *Session](cfg.MaxSessions, nil, cfg.IdleTTL),
	}
}

// Namespace is the storage key prefix of a session's cart and favorites.
func Namespace(id uuid.UUID) string {
	return "session_" + id.String() + "_"
}

// Get returns the session for id, creating it and loading its persisted
// cart on first use. Every call renews the session's idle deadline.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions.Get(id); ok {
		r.sessions.Add(id, s)
		return s
	}

	c := cart.New(cart.Config{
		KV:        r.cfg.KV,
		Catalog:   r.cfg.Catalog,
		Pricing:   r.cfg.Pricing,
		Namespace: Namespace(id),
		Now:       r.cfg.Now,
	})
	if err := c.Load(ctx); err != nil {
		logging.FromContext(ctx).Warn("session_load_error", "session", id.String(), "error", err)
	}

	s := New(id, r.cfg.Catalog, c, r.cfg.PageSize)
	if r.sessions.Add(id, s) {
		logging.FromContext(ctx).Debug("session_evicted", "live", r.sessions.Len())
	}
	return s
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}
