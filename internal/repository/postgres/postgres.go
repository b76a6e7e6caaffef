package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository"

	"github.com/lib/pq"
)

// Repository implements PortfolioRepository backed by PostgreSQL.
type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateAccount(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (id, name, family, broker_user_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, nullableString(account.Family), nullableString(account.BrokerUserID),
		account.CreatedAt, account.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateAccount
	}
	return err
}

func (r *Repository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	const query = `
		SELECT id, name, family, broker_user_id, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `
		SELECT id, name, family, broker_user_id, created_at, updated_at
		FROM accounts
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *Repository) ListAccountsByFamily(ctx context.Context, family string) ([]models.Account, error) {
	const query = `
		SELECT id, name, family, broker_user_id, created_at, updated_at
		FROM accounts
		WHERE COALESCE(family, '') = $1
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *Repository) UpdateAccount(ctx context.Context, account models.Account) error {
	const query = `
		UPDATE accounts
		SET name = $2, family = $3, broker_user_id = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, nullableString(account.Family), nullableString(account.BrokerUserID),
		account.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateAccount
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) ReplaceHoldings(ctx context.Context, accountID string, holdings []models.Holding) error {
	const insert = `
		INSERT INTO holdings (account_id, symbol, kind, quantity, collateral_quantity, average_price, last_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE account_id = $1`, accountID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, h := range holdings {
		if _, err := tx.ExecContext(ctx, insert,
			accountID, h.Symbol, string(h.Kind), h.Quantity, h.CollateralQuantity, h.AveragePrice, h.LastPrice); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) ListHoldings(ctx context.Context, accountID string) ([]models.Holding, error) {
	const query = `
		SELECT account_id, symbol, kind, quantity, collateral_quantity, average_price, last_price
		FROM holdings
		WHERE account_id = $1
		ORDER BY symbol ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Holding{}
	for rows.Next() {
		var h models.Holding
		var kind string
		if err := rows.Scan(&h.AccountID, &h.Symbol, &kind, &h.Quantity, &h.CollateralQuantity, &h.AveragePrice, &h.LastPrice); err != nil {
			return nil, err
		}
		h.Kind = models.InstrumentKind(kind)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repository) ReplacePositions(ctx context.Context, accountID string, positions []models.Position) error {
	const insert = `
		INSERT INTO positions (account_id, symbol, quantity, average_price, last_price, market_value, pnl)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE account_id = $1`, accountID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, p := range positions {
		if _, err := tx.ExecContext(ctx, insert,
			accountID, p.Symbol, p.Quantity, p.AveragePrice, p.LastPrice, p.MarketValue, p.PnL); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) ListPositions(ctx context.Context, accountID string) ([]models.Position, error) {
	const query = `
		SELECT account_id, symbol, quantity, average_price, last_price, market_value, pnl
		FROM positions
		WHERE account_id = $1
		ORDER BY symbol ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Position{}
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.AccountID, &p.Symbol, &p.Quantity, &p.AveragePrice, &p.LastPrice, &p.MarketValue, &p.PnL); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) SaveMarginSnapshot(ctx context.Context, snapshot models.MarginSnapshot) error {
	const query = `
		INSERT INTO margin_snapshots (account_id, net, debits, liquid_collateral, stock_collateral, fetched_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (account_id) DO UPDATE
		SET net = EXCLUDED.net, debits = EXCLUDED.debits,
		    liquid_collateral = EXCLUDED.liquid_collateral,
		    stock_collateral = EXCLUDED.stock_collateral,
		    fetched_at = EXCLUDED.fetched_at
	`
	_, err := r.db.ExecContext(ctx, query,
		snapshot.AccountID, snapshot.Net, snapshot.Debits, snapshot.LiquidCollateral, snapshot.StockCollateral, snapshot.FetchedAt)
	return err
}

func (r *Repository) GetMarginSnapshot(ctx context.Context, accountID string) (*models.MarginSnapshot, error) {
	const query = `
		SELECT account_id, net, debits, liquid_collateral, stock_collateral, fetched_at
		FROM margin_snapshots
		WHERE account_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, accountID)
	var s models.MarginSnapshot
	if err := row.Scan(&s.AccountID, &s.Net, &s.Debits, &s.LiquidCollateral, &s.StockCollateral, &s.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) UpsertCategoryMapping(ctx context.Context, mapping models.CategoryMapping) error {
	const query = `
		INSERT INTO category_mappings (symbol, kind, category)
		VALUES ($1,$2,$3)
		ON CONFLICT (symbol, kind) DO UPDATE SET category = EXCLUDED.category
	`
	_, err := r.db.ExecContext(ctx, query, mapping.Symbol, string(mapping.Kind), string(mapping.Category))
	return err
}

func (r *Repository) ListCategoryMappings(ctx context.Context) ([]models.CategoryMapping, error) {
	const query = `
		SELECT symbol, kind, category
		FROM category_mappings
		ORDER BY symbol ASC, kind ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CategoryMapping{}
	for rows.Next() {
		var m models.CategoryMapping
		var kind, category string
		if err := rows.Scan(&m.Symbol, &kind, &category); err != nil {
			return nil, err
		}
		m.Kind = models.InstrumentKind(kind)
		m.Category = models.Category(category)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteCategoryMapping(ctx context.Context, symbol string, kind models.InstrumentKind) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category_mappings WHERE symbol = $1 AND kind = $2`, symbol, string(kind))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	var family, brokerUserID sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &family, &brokerUserID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Family = family.String
	a.BrokerUserID = brokerUserID.String
	return &a, nil
}

func scanAccounts(rows *sql.Rows) ([]models.Account, error) {
	out := []models.Account{}
	for rows.Next() {
		var a models.Account
		var family, brokerUserID sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &family, &brokerUserID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Family = family.String
		a.BrokerUserID = brokerUserID.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
