package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/deepakgees/AssetManagement-sub001/internal/broker"
	"github.com/deepakgees/AssetManagement-sub001/internal/margin"
	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/deepakgees/AssetManagement-sub001/internal/portfolio"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrValidation = errors.New("validation_error")
	ErrNotFound   = repository.ErrNotFound
	ErrDuplicate  = repository.ErrDuplicateAccount
)

// PortfolioService coordinates account management, broker syncs and the pure
// aggregation arithmetic.
type PortfolioService struct {
	repo   repository.PortfolioRepository
	broker broker.Service
	now    func() time.Time
	logger *logrus.Entry
}

func NewPortfolioService(repo repository.PortfolioRepository, brokerSvc broker.Service, logger *logrus.Logger) *PortfolioService {
	return &PortfolioService{
		repo:   repo,
		broker: brokerSvc,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.WithField("component", "portfolio-service"),
	}
}

// AccountInput is the DTO for account create/update.
type AccountInput struct {
	Name         string
	Family       string
	BrokerUserID string
}

func (s *PortfolioService) CreateAccount(ctx context.Context, input AccountInput) (*models.Account, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	now := s.now()
	account := models.Account{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Family:       input.Family,
		BrokerUserID: input.BrokerUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *PortfolioService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *PortfolioService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *PortfolioService) UpdateAccount(ctx context.Context, id string, input AccountInput) (*models.Account, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	existing, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = input.Name
	existing.Family = input.Family
	existing.BrokerUserID = input.BrokerUserID
	existing.UpdatedAt = s.now()
	if err := s.repo.UpdateAccount(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *PortfolioService) DeleteAccount(ctx context.Context, id string) error {
	return s.repo.DeleteAccount(ctx, id)
}

// SyncResult reports what a broker sync stored.
type SyncResult struct {
	AccountID string    `json:"accountId"`
	Holdings  int       `json:"holdings"`
	Positions int       `json:"positions"`
	SyncedAt  time.Time `json:"syncedAt"`
}

// SyncAccount pulls the margin snapshot, holdings and positions from the
// broker in parallel and replaces the stored copies.
func (s *PortfolioService) SyncAccount(ctx context.Context, id string) (*SyncResult, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		snapshot  models.MarginSnapshot
		holdings  []models.Holding
		positions []models.Position
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = s.broker.GetMarginSnapshot(gctx, *account)
		return err
	})
	g.Go(func() error {
		var err error
		holdings, err = s.broker.GetHoldings(gctx, *account)
		return err
	})
	g.Go(func() error {
		var err error
		positions, err = s.broker.GetPositions(gctx, *account)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("broker sync for account %s: %w", id, err)
	}

	if err := s.repo.SaveMarginSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceHoldings(ctx, id, holdings); err != nil {
		return nil, err
	}
	if err := s.repo.ReplacePositions(ctx, id, positions); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"accountId": id,
		"holdings":  len(holdings),
		"positions": len(positions),
	}).Info("account synced")
	return &SyncResult{AccountID: id, Holdings: len(holdings), Positions: len(positions), SyncedAt: s.now()}, nil
}

func (s *PortfolioService) AccountHoldings(ctx context.Context, id string) ([]models.Holding, error) {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHoldings(ctx, id)
}

func (s *PortfolioService) AccountPositions(ctx context.Context, id string) ([]models.Position, error) {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListPositions(ctx, id)
}

// AccountMargins computes margin status from the stored snapshot. An account
// that was never synced yields zero used and available margin.
func (s *PortfolioService) AccountMargins(ctx context.Context, id string) (*models.MarginStatus, error) {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	snapshot, err := s.repo.GetMarginSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	status := margin.Availability(snapshot)
	status.AccountID = id
	return &status, nil
}

// FamilyGroup pairs a family label with its member accounts.
type FamilyGroup struct {
	Family   string           `json:"family"`
	Accounts []models.Account `json:"accounts"`
}

// ListFamilies groups all accounts by family label, Unknown bucket last.
func (s *PortfolioService) ListFamilies(ctx context.Context) ([]FamilyGroup, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	byFamily := make(map[string][]models.Account)
	for _, a := range accounts {
		family := a.FamilyOrUnknown()
		byFamily[family] = append(byFamily[family], a)
	}

	names := make([]string, 0, len(byFamily))
	for name := range byFamily {
		if name != models.UnknownFamily {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := byFamily[models.UnknownFamily]; ok {
		names = append(names, models.UnknownFamily)
	}

	groups := make([]FamilyGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, FamilyGroup{Family: name, Accounts: byFamily[name]})
	}
	return groups, nil
}

// FamilyReport carries the family rollup plus the per-account summaries it
// was derived from.
type FamilyReport struct {
	Summary  models.FamilySummary    `json:"summary"`
	Accounts []models.AccountSummary `json:"accounts"`
}

// FamilySummary sums every member account's independently computed summary.
func (s *PortfolioService) FamilySummary(ctx context.Context, family string) (*FamilyReport, error) {
	accounts, err := s.familyAccounts(ctx, family)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.AccountSummary, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			holdings, err := s.repo.ListHoldings(gctx, account.ID)
			if err != nil {
				return err
			}
			summaries[i] = portfolio.Summarize(account, holdings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &FamilyReport{
		Summary:  portfolio.Rollup(family, summaries),
		Accounts: summaries,
	}, nil
}

// CategoryReport is the per-category rollup of a family's holdings plus the
// chart-ready slices derived from it.
type CategoryReport struct {
	Family    string                                    `json:"family"`
	Breakdown map[models.Category]models.CategoryTotals `json:"breakdown"`
	Slices    []portfolio.CategorySlice                 `json:"slices"`
}

// FamilyCategories buckets every holding of the family's accounts by
// category, with unmapped symbols reported under the Unmapped key.
func (s *PortfolioService) FamilyCategories(ctx context.Context, family string) (*CategoryReport, error) {
	accounts, err := s.familyAccounts(ctx, family)
	if err != nil {
		return nil, err
	}

	mappings, err := s.repo.ListCategoryMappings(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]models.Category, len(mappings))
	for _, m := range mappings {
		byKey[m.Symbol+"::"+string(m.Kind)] = m.Category
	}
	lookup := func(symbol string, kind models.InstrumentKind) (models.Category, bool) {
		c, ok := byKey[symbol+"::"+string(kind)]
		return c, ok
	}

	holdings, err := s.familyHoldings(ctx, accounts)
	if err != nil {
		return nil, err
	}

	breakdown := portfolio.CategoryBreakdown(holdings, lookup)
	return &CategoryReport{
		Family:    family,
		Breakdown: breakdown,
		Slices:    portfolio.ChartSlices(breakdown),
	}, nil
}

// FamilyMargins is per-account margin status plus family totals. Totals are
// plain sums of each account's figures since margin facilities are
// independent.
type FamilyMargins struct {
	Family         string                `json:"family"`
	Accounts       []models.MarginStatus `json:"accounts"`
	TotalUsed      decimal.Decimal       `json:"totalUsed"`
	TotalAvailable decimal.Decimal       `json:"totalAvailable"`
	Warnings       int                   `json:"warnings"`
}

func (s *PortfolioService) FamilyMargins(ctx context.Context, family string) (*FamilyMargins, error) {
	accounts, err := s.familyAccounts(ctx, family)
	if err != nil {
		return nil, err
	}

	statuses := make([]models.MarginStatus, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			snapshot, err := s.repo.GetMarginSnapshot(gctx, account.ID)
			if err != nil {
				return err
			}
			status := margin.Availability(snapshot)
			status.AccountID = account.ID
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &FamilyMargins{Family: family, Accounts: statuses}
	for _, st := range statuses {
		out.TotalUsed = out.TotalUsed.Add(st.UsedMargin)
		out.TotalAvailable = out.TotalAvailable.Add(st.AvailableMargin)
		out.Warnings += st.Warnings
	}
	return out, nil
}

// FamilyPositions returns every member account's positions grouped by expiry
// month in calendar order.
func (s *PortfolioService) FamilyPositions(ctx context.Context, family string) ([]models.MonthGroup, error) {
	accounts, err := s.familyAccounts(ctx, family)
	if err != nil {
		return nil, err
	}

	perAccount := make([][]models.Position, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			positions, err := s.repo.ListPositions(gctx, account.ID)
			if err != nil {
				return err
			}
			perAccount[i] = positions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := []models.Position{}
	for _, positions := range perAccount {
		all = append(all, positions...)
	}
	return portfolio.GroupByMonth(all), nil
}

func (s *PortfolioService) ListCategoryMappings(ctx context.Context) ([]models.CategoryMapping, error) {
	return s.repo.ListCategoryMappings(ctx)
}

func (s *PortfolioService) UpsertCategoryMapping(ctx context.Context, mapping models.CategoryMapping) error {
	if mapping.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if mapping.Kind != models.InstrumentEquity && mapping.Kind != models.InstrumentMutualFund {
		return fmt.Errorf("%w: kind must be equity or mutual_fund", ErrValidation)
	}
	if !mapping.Category.Known() {
		return fmt.Errorf("%w: category must be one of equity, liquid_fund, gold, silver", ErrValidation)
	}
	return s.repo.UpsertCategoryMapping(ctx, mapping)
}

func (s *PortfolioService) DeleteCategoryMapping(ctx context.Context, symbol string, kind models.InstrumentKind) error {
	return s.repo.DeleteCategoryMapping(ctx, symbol, kind)
}

// familyAccounts resolves a family label to its member accounts. The Unknown
// label selects accounts without a family. An empty result is a 404 at the
// API layer.
func (s *PortfolioService) familyAccounts(ctx context.Context, family string) ([]models.Account, error) {
	lookup := family
	if family == models.UnknownFamily {
		lookup = ""
	}
	accounts, err := s.repo.ListAccountsByFamily(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("family %q: %w", family, ErrNotFound)
	}
	return accounts, nil
}

func (s *PortfolioService) familyHoldings(ctx context.Context, accounts []models.Account) ([]models.Holding, error) {
	perAccount := make([][]models.Holding, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			holdings, err := s.repo.ListHoldings(gctx, account.ID)
			if err != nil {
				return err
			}
			perAccount[i] = holdings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := []models.Holding{}
	for _, holdings := range perAccount {
		all = append(all, holdings...)
	}
	return all, nil
}
