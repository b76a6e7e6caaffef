package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository"
)

// InMemoryRepo keeps everything in maps guarded by one RWMutex. Used for
// local development when DATABASE_URL is unset; data resets on restart.
type InMemoryRepo struct {
	mu        sync.RWMutex
	accounts  map[string]models.Account
	holdings  map[string][]models.Holding
	positions map[string][]models.Position
	snapshots map[string]models.MarginSnapshot
	mappings  map[string]models.CategoryMapping
}

func New() *InMemoryRepo {
	return &InMemoryRepo{
		accounts:  make(map[string]models.Account),
		holdings:  make(map[string][]models.Holding),
		positions: make(map[string][]models.Position),
		snapshots: make(map[string]models.MarginSnapshot),
		mappings:  make(map[string]models.CategoryMapping),
	}
}

func (r *InMemoryRepo) CreateAccount(ctx context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Name, account.Name) {
			return repository.ErrDuplicateAccount
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *InMemoryRepo) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := account
	return &copy, nil
}

func (r *InMemoryRepo) ListAccounts(ctx context.Context) ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		accounts = append(accounts, a)
	}
	sortAccounts(accounts)
	return accounts, nil
}

func (r *InMemoryRepo) ListAccountsByFamily(ctx context.Context, family string) ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := []models.Account{}
	for _, a := range r.accounts {
		if a.Family == family {
			accounts = append(accounts, a)
		}
	}
	sortAccounts(accounts)
	return accounts, nil
}

func (r *InMemoryRepo) UpdateAccount(ctx context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.accounts {
		if id != account.ID && strings.EqualFold(existing.Name, account.Name) {
			return repository.ErrDuplicateAccount
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *InMemoryRepo) DeleteAccount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.accounts, id)
	delete(r.holdings, id)
	delete(r.positions, id)
	delete(r.snapshots, id)
	return nil
}

func (r *InMemoryRepo) ReplaceHoldings(ctx context.Context, accountID string, holdings []models.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdings[accountID] = append([]models.Holding(nil), holdings...)
	return nil
}

func (r *InMemoryRepo) ListHoldings(ctx context.Context, accountID string) ([]models.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Holding(nil), r.holdings[accountID]...), nil
}

func (r *InMemoryRepo) ReplacePositions(ctx context.Context, accountID string, positions []models.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[accountID] = append([]models.Position(nil), positions...)
	return nil
}

func (r *InMemoryRepo) ListPositions(ctx context.Context, accountID string) ([]models.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Position(nil), r.positions[accountID]...), nil
}

func (r *InMemoryRepo) SaveMarginSnapshot(ctx context.Context, snapshot models.MarginSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.AccountID] = snapshot
	return nil
}

func (r *InMemoryRepo) GetMarginSnapshot(ctx context.Context, accountID string) (*models.MarginSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.snapshots[accountID]
	if !ok {
		return nil, nil
	}
	copy := snapshot
	return &copy, nil
}

func (r *InMemoryRepo) UpsertCategoryMapping(ctx context.Context, mapping models.CategoryMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[mappingKey(mapping.Symbol, mapping.Kind)] = mapping
	return nil
}

func (r *InMemoryRepo) ListCategoryMappings(ctx context.Context) ([]models.CategoryMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mappings := make([]models.CategoryMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		mappings = append(mappings, m)
	}
	slices.SortFunc(mappings, func(a, b models.CategoryMapping) int {
		return strings.Compare(mappingKey(a.Symbol, a.Kind), mappingKey(b.Symbol, b.Kind))
	})
	return mappings, nil
}

func (r *InMemoryRepo) DeleteCategoryMapping(ctx context.Context, symbol string, kind models.InstrumentKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := mappingKey(symbol, kind)
	if _, ok := r.mappings[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.mappings, key)
	return nil
}

func mappingKey(symbol string, kind models.InstrumentKind) string {
	return symbol + "::" + string(kind)
}

func sortAccounts(accounts []models.Account) {
	slices.SortFunc(accounts, func(a, b models.Account) int {
		return strings.Compare(a.Name, b.Name)
	})
}
