package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/topspin/internal/logging"
)

const (
	DefaultPrefix   = "topspin_"
	DefaultMaxSize  = 5 * 1024 * 1024
	DefaultCacheTTL = time.Hour
	BackupVersion   = "1.0"

	versionKey = "_version"
)

var ErrInvalidBackup = fmt.Errorf("%w: invalid backup format", ErrStorage)

// envelope wraps values written with a ttl.
type envelope struct {
	Value   json.RawMessage `json:"__value"`
	Expires int64           `json:"__expires"`
}

type Store struct {
	backend Backend
	prefix  string
	maxSize int
	now     func() time.Time
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		prefix:  DefaultPrefix,
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxSize() int { return s.maxSize }

// Get decodes the value under key into dst. Expired entries are removed and
// reported as absent. A nil dst only checks presence.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	payload, ok, err := s.read(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if dst == nil {
		return true, nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("%w: decode %q: %w", ErrStorage, key, err)
	}
	return true, nil
}

func (s *Store) read(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, ok, err := s.backend.Read(ctx, s.prefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %q: %w", ErrStorage, key, err)
	}
	if !ok {
		return nil, false, nil
	}

	payload, expires, wrapped := unwrap(raw)
	if wrapped && s.now().UnixMilli() > expires {
		if err := s.Remove(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("storage_expire_error", "key", key, "error", err)
		}
		return nil, false, nil
	}
	return payload, true, nil
}

func unwrap(raw []byte) (json.RawMessage, int64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw, 0, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return raw, 0, false
	}
	if _, ok := probe["__expires"]; !ok {
		return raw, 0, false
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Expires == 0 {
		return raw, 0, false
	}
	return env.Value, env.Expires, true
}

// Set stores value as JSON. A positive ttl makes the entry expire.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", ErrStorage, key, err)
	}
	if ttl > 0 {
		data, err = json.Marshal(envelope{Value: data, Expires: s.now().Add(ttl).UnixMilli()})
		if err != nil {
			return fmt.Errorf("%w: encode %q: %w", ErrStorage, key, err)
		}
	}
	if len(data) > s.maxSize {
		return fmt.Errorf("%q (%d bytes): %w", key, len(data), ErrTooLarge)
	}

	err = s.backend.Write(ctx, s.prefix+key, data)
	if errors.Is(err, ErrQuota) {
		l := logging.FromContext(ctx)
		l.Warn("storage_quota_exceeded", "key", key, "size", len(data))
		if _, cerr := s.Cleanup(ctx); cerr != nil {
			l.Warn("storage_cleanup_error", "error", cerr)
		}
		err = s.backend.Write(ctx, s.prefix+key, data)
	}
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return fmt.Errorf("write %q: %w", key, err)
		}
		return fmt.Errorf("%w: write %q: %w", ErrStorage, key, err)
	}
	return nil
}

// SetCache is Set with a default ttl of one hour.
func (s *Store) SetCache(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return s.Set(ctx, key, value, ttl)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("%w: remove %q: %w", ErrStorage, key, err)
	}
	return nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	return s.Get(ctx, key, nil)
}

// Keys lists the keys of this store without the prefix. Entries written
// by others under a different prefix are not reported.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	all, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %w", ErrStorage, err)
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, s.prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys, nil
}

// Clear removes every entry under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.ClearMatching(ctx, "")
	return err
}

// ClearMatching removes entries whose key contains pattern; an empty pattern
// matches everything.
func (s *Store) ClearMatching(ctx context.Context, pattern string) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, k := range keys {
		if pattern != "" && !strings.Contains(k, pattern) {
			continue
		}
		if err := s.Remove(ctx, k); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

// Cleanup drops expired entries and returns how many were removed.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	cleaned := 0
	for _, k := range keys {
		_, ok, err := s.read(ctx, k)
		if err != nil {
			return cleaned, err
		}
		if !ok {
			cleaned++
		}
	}
	logging.FromContext(ctx).Info("storage_cleanup", "removed", cleaned)
	return cleaned, nil
}

type Stats struct {
	TotalSize   int            `json:"totalSize"`
	ItemCount   int            `json:"itemCount"`
	ItemSizes   map[string]int `json:"itemSizes"`
	PercentUsed float64        `json:"percentUsed"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{ItemSizes: make(map[string]int, len(keys))}
	for _, k := range keys {
		raw, ok, err := s.backend.Read(ctx, s.prefix+k)
		if err != nil {
			return Stats{}, fmt.Errorf("%w: read %q: %w", ErrStorage, k, err)
		}
		if !ok {
			continue
		}
		st.TotalSize += len(raw)
		st.ItemCount++
		st.ItemSizes[k] = len(raw)
	}
	st.PercentUsed = float64(st.TotalSize) / float64(s.maxSize) * 100
	return st, nil
}

type Backup struct {
	Version   string                     `json:"version"`
	Timestamp time.Time                  `json:"timestamp"`
	Data      map[string]json.RawMessage `json:"data"`
}

// Export snapshots every live entry. Expiry envelopes are not preserved.
func (s *Store) Export(ctx context.Context) (Backup, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return Backup{}, err
	}
	b := Backup{Version: BackupVersion, Timestamp: s.now().UTC(), Data: make(map[string]json.RawMessage, len(keys))}
	for _, k := range keys {
		payload, ok, err := s.read(ctx, k)
		if err != nil {
			return Backup{}, err
		}
		if ok {
			b.Data[k] = payload
		}
	}
	return b, nil
}

// Import writes every entry of b and returns how many were stored. Entries
// that fail are logged and skipped.
func (s *Store) Import(ctx context.Context, b Backup) (int, error) {
	if b.Version == "" || b.Data == nil {
		return 0, ErrInvalidBackup
	}
	l := logging.FromContext(ctx)
	imported := 0
	for k, v := range b.Data {
		if err := s.Set(ctx, k, v, 0); err != nil {
			l.Warn("storage_import_error", "key", k, "error", err)
			continue
		}
		imported++
	}
	l.Info("storage_import", "imported", imported)
	return imported, nil
}

type Migration struct {
	Version int
	Up      func(ctx context.Context, s *Store) error
}

// Migrate runs, in order, every migration newer than the stored version and
// records each applied version. It stops at the first failure.
func (s *Store) Migrate(ctx context.Context, migrations []Migration) (int, error) {
	current := 0
	if _, err := s.Get(ctx, versionKey, &current); err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := m.Up(ctx, s); err != nil {
			logging.FromContext(ctx).Error("storage_migration_error", "version", m.Version, "error", err)
			return applied, fmt.Errorf("migration %d: %w", m.Version, err)
		}
		if err := s.Set(ctx, versionKey, m.Version, 0); err != nil {
			return applied, err
		}
		current = m.Version
		applied++
	}
	return applied, nil
}

// Version reports the last applied migration.
func (s *Store) Version(ctx context.Context) (int, error) {
	v := 0
	_, err := s.Get(ctx, versionKey, &v)
	return v, err
}
