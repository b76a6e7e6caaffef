package repository

import (
	"context"
	"fmt"

	"github.com/deepakgees/AssetManagement-sub001/internal/models"
)

var (
	// ErrNotFound indicates the requested account or mapping does not exist.
	ErrNotFound = fmt.Errorf("not found")
	// ErrDuplicateAccount indicates an account with the same name already exists.
	ErrDuplicateAccount = fmt.Errorf("duplicate account")
)

// PortfolioRepository abstracts persistence for accounts, synced broker data
// and category mappings. Holdings, positions and margin snapshots are
// replaced wholesale on each sync; only accounts and mappings are edited.
type PortfolioRepository interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListAccountsByFamily(ctx context.Context, family string) ([]models.Account, error)
	UpdateAccount(ctx context.Context, account models.Account) error
	DeleteAccount(ctx context.Context, id string) error

	ReplaceHoldings(ctx context.Context, accountID string, holdings []models.Holding) error
	ListHoldings(ctx context.Context, accountID string) ([]models.Holding, error)
	ReplacePositions(ctx context.Context, accountID string, positions []models.Position) error
	ListPositions(ctx context.Context, accountID string) ([]models.Position, error)

	SaveMarginSnapshot(ctx context.Context, snapshot models.MarginSnapshot) error
	// GetMarginSnapshot returns nil (not an error) when the account was
	// never synced; callers treat that as an all-zero snapshot.
	GetMarginSnapshot(ctx context.Context, accountID string) (*models.MarginSnapshot, error)

	UpsertCategoryMapping(ctx context.Context, mapping models.CategoryMapping) error
	ListCategoryMappings(ctx context.Context) ([]models.CategoryMapping, error)
	DeleteCategoryMapping(ctx context.Context, symbol string, kind models.InstrumentKind) error
}
