package service

import (
	"context"
	"errors"
	"testing"

	"github.com/deepakgees/AssetManagement-sub001/internal/logger"
	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBroker serves canned data per broker user id.
type stubBroker struct {
	snapshots map[string]models.MarginSnapshot
	holdings  map[string][]models.Holding
	positions map[string][]models.Position
	err       error
}

func (b *stubBroker) GetMarginSnapshot(ctx context.Context, account models.Account) (models.MarginSnapshot, error) {
	if b.err != nil {
		return models.MarginSnapshot{}, b.err
	}
	s := b.snapshots[account.BrokerUserID]
	s.AccountID = account.ID
	return s, nil
}

func (b *stubBroker) GetHoldings(ctx context.Context, account models.Account) ([]models.Holding, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.holdings[account.BrokerUserID], nil
}

func (b *stubBroker) GetPositions(ctx context.Context, account models.Account) ([]models.Position, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.positions[account.BrokerUserID], nil
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(b *stubBroker) *PortfolioService {
	return NewPortfolioService(memory.New(), b, logger.NewSilent())
}

func TestCreateAccountValidation(t *testing.T) {
	svc := newService(&stubBroker{})
	_, err := svc.CreateAccount(context.Background(), AccountInput{Family: "Sharma"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateAccountDuplicateName(t *testing.T) {
	svc := newService(&stubBroker{})
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, AccountInput{Name: "Deepak"})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, AccountInput{Name: "deepak"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSyncAccountStoresBrokerData(t *testing.T) {
	b := &stubBroker{
		snapshots: map[string]models.MarginSnapshot{
			"ZD001": {Net: dec("100000"), Debits: dec("20000"), LiquidCollateral: dec("30000")},
		},
		holdings: map[string][]models.Holding{
			"ZD001": {{Symbol: "INFY", Kind: models.InstrumentEquity, Quantity: dec("10"), AveragePrice: dec("100"), LastPrice: dec("120")}},
		},
		positions: map[string][]models.Position{
			"ZD001": {{Symbol: "NIFTYJANFUT", MarketValue: dec("-5000"), PnL: dec("2000")}},
		},
	}
	svc := newService(b)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, AccountInput{Name: "Deepak", BrokerUserID: "ZD001"})
	require.NoError(t, err)

	result, err := svc.SyncAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Holdings)
	assert.Equal(t, 1, result.Positions)

	status, err := svc.AccountMargins(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, status.UsedMargin.Equal(dec("20000")))
	// 30000 - 10000 = 20000 free collateral, doubled is 40000 < net.
	assert.True(t, status.AvailableMargin.Equal(dec("40000")))
}

func TestSyncAccountBrokerFailure(t *testing.T) {
	brokerErr := errors.New("broker unreachable")
	svc := newService(&stubBroker{err: brokerErr})
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, AccountInput{Name: "Deepak"})
	require.NoError(t, err)

	_, err = svc.SyncAccount(ctx, account.ID)
	assert.ErrorIs(t, err, brokerErr)
}

func TestAccountMarginsUnsyncedAccountIsZero(t *testing.T) {
	svc := newService(&stubBroker{})
	ctx := context.Background()
	account, err := svc.CreateAccount(ctx, AccountInput{Name: "Deepak"})
	require.NoError(t, err)

	status, err := svc.AccountMargins(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, status.UsedMargin.IsZero())
	assert.True(t, status.AvailableMargin.IsZero())
	assert.Equal(t, 0, status.Warnings)
}

func TestAccountMarginsUnknownAccount(t *testing.T) {
	svc := newService(&stubBroker{})
	_, err := svc.AccountMargins(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func familyFixture(t *testing.T) (*PortfolioService, []models.Account) {
	t.Helper()
	b := &stubBroker{
		snapshots: map[string]models.MarginSnapshot{
			"ZD001": {Net: dec("100000"), Debits: dec("20000"), LiquidCollateral: dec("70000")},
			"ZD002": {Net: dec("100000"), Debits: dec("20000"), LiquidCollateral: dec("30000")},
		},
		holdings: map[string][]models.Holding{
			"ZD001": {
				{Symbol: "INFY", Kind: models.InstrumentEquity, Quantity: dec("10"), AveragePrice: dec("100"), LastPrice: dec("120")},
			},
			"ZD002": {
				{Symbol: "GOLDBEES", Kind: models.InstrumentEquity, Quantity: dec("100"), CollateralQuantity: dec("50"), AveragePrice: dec("50"), LastPrice: dec("60")},
			},
		},
		positions: map[string][]models.Position{
			"ZD001": {{Symbol: "NIFTYFEBFUT", MarketValue: dec("-1000"), PnL: dec("200")}},
			"ZD002": {{Symbol: "NIFTYJANFUT", MarketValue: dec("-5000"), PnL: dec("2000")}},
		},
	}
	svc := newService(b)
	ctx := context.Background()

	accounts := []models.Account{}
	for _, in := range []AccountInput{
		{Name: "Deepak", Family: "Sharma", BrokerUserID: "ZD001"},
		{Name: "Meera", Family: "Sharma", BrokerUserID: "ZD002"},
	} {
		account, err := svc.CreateAccount(ctx, in)
		require.NoError(t, err)
		_, err = svc.SyncAccount(ctx, account.ID)
		require.NoError(t, err)
		accounts = append(accounts, *account)
	}
	return svc, accounts
}

func TestFamilySummary(t *testing.T) {
	svc, _ := familyFixture(t)

	report, err := svc.FamilySummary(context.Background(), "Sharma")
	require.NoError(t, err)

	assert.Equal(t, "Sharma", report.Summary.Family)
	assert.Equal(t, 2, report.Summary.Accounts)
	assert.Equal(t, 2, report.Summary.TotalHoldings)
	// 10*120 + 150*60
	assert.True(t, report.Summary.TotalMarketValue.Equal(dec("10200")), "market = %s", report.Summary.TotalMarketValue)
	// 10*100 + 150*50
	assert.True(t, report.Summary.TotalInvestment.Equal(dec("8500")))
	assert.True(t, report.Summary.TotalPnL.Equal(dec("1700")))
}

func TestFamilySummaryUnknownFamily(t *testing.T) {
	svc, _ := familyFixture(t)
	_, err := svc.FamilySummary(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFamilyMargins(t *testing.T) {
	svc, _ := familyFixture(t)

	margins, err := svc.FamilyMargins(context.Background(), "Sharma")
	require.NoError(t, err)

	require.Len(t, margins.Accounts, 2)
	// Net branch for ZD001 (100000), collateral branch for ZD002 (40000).
	assert.True(t, margins.TotalAvailable.Equal(dec("140000")), "available = %s", margins.TotalAvailable)
	assert.True(t, margins.TotalUsed.Equal(dec("40000")))
	assert.Equal(t, 0, margins.Warnings)
}

func TestFamilyCategories(t *testing.T) {
	svc, _ := familyFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertCategoryMapping(ctx, models.CategoryMapping{
		Symbol: "GOLDBEES", Kind: models.InstrumentEquity, Category: models.CategoryGold,
	}))

	report, err := svc.FamilyCategories(ctx, "Sharma")
	require.NoError(t, err)

	require.Len(t, report.Breakdown, 2)
	assert.True(t, report.Breakdown[models.CategoryGold].MarketValue.Equal(dec("9000")))
	assert.True(t, report.Breakdown[models.CategoryUnmapped].MarketValue.Equal(dec("1200")))
	require.Len(t, report.Slices, 2)
}

func TestFamilyPositionsMonthOrder(t *testing.T) {
	svc, _ := familyFixture(t)

	groups, err := svc.FamilyPositions(context.Background(), "Sharma")
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "January", groups[0].Month)
	assert.Equal(t, "February", groups[1].Month)
	assert.True(t, groups[0].RemainingPnL.Equal(dec("3000")))
}

func TestUpsertCategoryMappingValidation(t *testing.T) {
	svc := newService(&stubBroker{})
	ctx := context.Background()

	err := svc.UpsertCategoryMapping(ctx, models.CategoryMapping{
		Symbol: "INFY", Kind: models.InstrumentEquity, Category: models.Category("crypto"),
	})
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.UpsertCategoryMapping(ctx, models.CategoryMapping{
		Symbol: "INFY", Kind: models.InstrumentKind("bond"), Category: models.CategoryEquity,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListFamiliesUnknownBucketLast(t *testing.T) {
	svc := newService(&stubBroker{})
	ctx := context.Background()

	for _, in := range []AccountInput{
		{Name: "Zed"},
		{Name: "Deepak", Family: "Sharma"},
		{Name: "Anil", Family: "Agarwal"},
	} {
		_, err := svc.CreateAccount(ctx, in)
		require.NoError(t, err)
	}

	groups, err := svc.ListFamilies(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Agarwal", groups[0].Family)
	assert.Equal(t, "Sharma", groups[1].Family)
	assert.Equal(t, models.UnknownFamily, groups[2].Family)
}
