package broker

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/shopspring/decimal"
)

// Service is the broker-side data source for one account's margin snapshot,
// holdings and open positions. The production implementation wraps the
// broker's HTTP API; tests and local runs use the deterministic mock below.
type Service interface {
	GetMarginSnapshot(ctx context.Context, account models.Account) (models.MarginSnapshot, error)
	GetHoldings(ctx context.Context, account models.Account) ([]models.Holding, error)
	GetPositions(ctx context.Context, account models.Account) ([]models.Position, error)
}

var mockSymbols = []struct {
	symbol string
	kind   models.InstrumentKind
}{
	{"RELIANCE", models.InstrumentEquity},
	{"INFY", models.InstrumentEquity},
	{"TCS", models.InstrumentEquity},
	{"GOLDBEES", models.InstrumentEquity},
	{"SILVERBEES", models.InstrumentEquity},
	{"LIQUIDCASE", models.InstrumentMutualFund},
	{"HDFCLIQUID", models.InstrumentMutualFund},
}

var mockPositionSymbols = []string{
	"NIFTYJANFUT", "NIFTYFEBFUT", "BANKNIFTYMARPE", "FINNIFTYAPRCE", "SENSEXSPOT",
}

// MockService mimics a broker with deterministic pseudo-random data so the
// dashboard has stable numbers within a TTL window.
type MockService struct {
	mu      sync.Mutex
	cache   map[string]cached
	ttl     time.Duration
	nowFunc func() time.Time
}

type cached struct {
	snapshot  models.MarginSnapshot
	holdings  []models.Holding
	positions []models.Position
	fetchedAt time.Time
}

func NewMockService(ttl time.Duration) *MockService {
	return &MockService{
		cache:   make(map[string]cached),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (s *MockService) GetMarginSnapshot(ctx context.Context, account models.Account) (models.MarginSnapshot, error) {
	return s.entry(account).snapshot, nil
}

func (s *MockService) GetHoldings(ctx context.Context, account models.Account) ([]models.Holding, error) {
	return s.entry(account).holdings, nil
}

func (s *MockService) GetPositions(ctx context.Context, account models.Account) ([]models.Position, error) {
	return s.entry(account).positions, nil
}

func (s *MockService) entry(account models.Account) cached {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if c, ok := s.cache[account.ID]; ok && now.Sub(c.fetchedAt) < s.ttl {
		return c
	}
	c := s.generate(account, now)
	s.cache[account.ID] = c
	return c
}

// generate seeds a PRNG from the account and the day so numbers stay stable
// per account per day, like the broker's end-of-day files would.
func (s *MockService) generate(account models.Account, now time.Time) cached {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s-%s-%d", account.ID, account.BrokerUserID, now.YearDay())))
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	net := decimal.NewFromFloat(50_000 + r.Float64()*450_000).Round(2)
	debits := decimal.NewFromFloat(r.Float64() * 200_000).Round(2)
	liquid := decimal.NewFromFloat(r.Float64() * 300_000).Round(2)
	stock := decimal.NewFromFloat(r.Float64() * 150_000).Round(2)

	c := cached{
		snapshot: models.MarginSnapshot{
			AccountID:        account.ID,
			Net:              net,
			Debits:           debits,
			LiquidCollateral: liquid,
			StockCollateral:  stock,
			FetchedAt:        now,
		},
		fetchedAt: now,
	}

	for _, sym := range mockSymbols {
		if r.Float64() < 0.3 {
			continue
		}
		avg := 80 + r.Float64()*1920
		last := avg * (0.8 + r.Float64()*0.4)
		c.holdings = append(c.holdings, models.Holding{
			AccountID:          account.ID,
			Symbol:             sym.symbol,
			Kind:               sym.kind,
			Quantity:           decimal.NewFromInt(int64(1 + r.Intn(500))),
			CollateralQuantity: decimal.NewFromInt(int64(r.Intn(200))),
			AveragePrice:       decimal.NewFromFloat(avg).Round(2),
			LastPrice:          decimal.NewFromFloat(last).Round(2),
		})
	}

	for _, sym := range mockPositionSymbols {
		if r.Float64() < 0.5 {
			continue
		}
		// Short option style: negative market value, premium collected.
		mv := decimal.NewFromFloat(-(5_000 + r.Float64()*95_000)).Round(2)
		pnl := decimal.NewFromFloat(-10_000 + r.Float64()*30_000).Round(2)
		c.positions = append(c.positions, models.Position{
			AccountID:    account.ID,
			Symbol:       sym,
			Quantity:     decimal.NewFromInt(int64(-50 * (1 + r.Intn(4)))),
			AveragePrice: decimal.NewFromFloat(50 + r.Float64()*400).Round(2),
			LastPrice:    decimal.NewFromFloat(50 + r.Float64()*400).Round(2),
			MarketValue:  mv,
			PnL:          pnl,
		})
	}
	return c
}
