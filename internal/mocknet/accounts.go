package mocknet

import (
	"context"
	"slices"
	"sync"

	"github.com/Skotchmaster/topspin/internal/models"
)

type accountData struct {
	cart      []models.LineItem
	favorites []int
}

// Accounts is a fake account service holding a cart and favorites per
// account id.
type Accounts struct {
	sim *Simulator

	mu   sync.Mutex
	data map[string]accountData
}

func NewAccounts(sim *Simulator) *Accounts {
	return &Accounts{sim: sim, data: map[string]accountData{}}
}

// Seed replaces the stored state of an account without any latency.
func (a *Accounts) Seed(account string, cart []models.LineItem, favorites []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[account] = accountData{cart: slices.Clone(cart), favorites: slices.Clone(favorites)}
}

func (a *Accounts) FetchCart(ctx context.Context, account string) ([]models.LineItem, []int, error) {
	d, err := Call(ctx, a.sim, func(context.Context) (accountData, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		d := a.data[account]
		return accountData{cart: slices.Clone(d.cart), favorites: slices.Clone(d.favorites)}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return d.cart, d.favorites, nil
}

func (a *Accounts) PushCart(ctx context.Context, account string, cart []models.LineItem, favorites []int) error {
	_, err := Call(ctx, a.sim, func(context.Context) (struct{}, error) {
		a.Seed(account, cart, favorites)
		return struct{}{}, nil
	})
	return err
}
