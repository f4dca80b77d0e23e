package cart

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/models"
)

const BackupVersion = "1.0"

// MergeCart folds items into the cart. Items sharing a (id, size, color) key
// add their quantities; malformed items are skipped.
func (s *Store) MergeCart(ctx context.Context, items []models.LineItem) {
	s.items, _ = foldItems(s.items, items)
	s.saveCart(ctx)
}

func (s *Store) MergeFavorites(ctx context.Context, ids []int) {
	for _, id := range ids {
		if id > 0 && !slices.Contains(s.favorites, id) {
			s.favorites = append(s.favorites, id)
		}
	}
	s.saveFavorites(ctx)
}

type Backup struct {
	Cart       []models.LineItem `json:"cart"`
	Favorites  []int             `json:"favorites"`
	ExportedAt time.Time         `json:"exportedAt"`
	Version    string            `json:"version"`
}

func (s *Store) Export() Backup {
	return Backup{
		Cart:       s.Items(),
		Favorites:  s.Favorites(),
		ExportedAt: s.now().UTC(),
		Version:    BackupVersion,
	}
}

// Import restores a backup. A nil cart or favorites list leaves that part
// untouched.
func (s *Store) Import(ctx context.Context, b Backup) error {
	if b.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q: %w", b.Version, ErrValidation)
	}
	if b.Cart != nil {
		s.items, _ = foldItems(nil, b.Cart)
		s.saveCart(ctx)
	}
	if b.Favorites != nil {
		s.favorites = nil
		for _, id := range b.Favorites {
			if id > 0 && !slices.Contains(s.favorites, id) {
				s.favorites = append(s.favorites, id)
			}
		}
		s.saveFavorites(ctx)
	}
	return nil
}

// Remote is an account service holding a server-side copy of the cart.
type Remote interface {
	FetchCart(ctx context.Context, account string) ([]models.LineItem, []int, error)
	PushCart(ctx context.Context, account string, items []models.LineItem, favorites []int) error
}

// SyncRemote merges the account's remote cart and favorites into this one
// and pushes the result back. Nothing is retried.
func (s *Store) SyncRemote(ctx context.Context, remote Remote, account string) error {
	l := logging.FromContext(ctx).With("account", account)

	items, favs, err := remote.FetchCart(ctx, account)
	if err != nil {
		l.Warn("cart_sync_fetch_error", "error", err)
		return fmt.Errorf("fetch remote cart: %w", err)
	}
	s.MergeCart(ctx, items)
	s.MergeFavorites(ctx, favs)

	if err := remote.PushCart(ctx, account, s.Items(), s.Favorites()); err != nil {
		l.Warn("cart_sync_push_error", "error", err)
		return fmt.Errorf("push remote cart: %w", err)
	}
	l.Info("cart_synced", "items", len(s.items), "favorites", len(s.favorites))
	return nil
}
