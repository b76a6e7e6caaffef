package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentKind distinguishes directly held equity from mutual fund units.
type InstrumentKind string

const (
	InstrumentEquity     InstrumentKind = "equity"
	InstrumentMutualFund InstrumentKind = "mutual_fund"
)

// Category is the coarse asset-class bucket assigned to a holding. Holdings
// without a mapping fall back to CategoryUnmapped, which is a real reporting
// bucket and not an error.
type Category string

const (
	CategoryEquity     Category = "equity"
	CategoryLiquidFund Category = "liquid_fund"
	CategoryGold       Category = "gold"
	CategorySilver     Category = "silver"
	CategoryUnmapped   Category = "Unmapped"
)

// KnownCategories lists the categories an operator may assign via a mapping.
var KnownCategories = []Category{CategoryEquity, CategoryLiquidFund, CategoryGold, CategorySilver}

// Known reports whether c is an assignable category (i.e. not the fallback).
func (c Category) Known() bool {
	for _, k := range KnownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// UnknownFamily is the reporting bucket for accounts without a family label.
const UnknownFamily = "Unknown"

// Account is a brokerage account tracked by the service. Accounts sharing a
// Family label are aggregated together; each account's margin facility stays
// independent.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Family       string    `json:"family,omitempty"`
	BrokerUserID string    `json:"brokerUserId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FamilyOrUnknown returns the family label used for grouped reporting.
func (a Account) FamilyOrUnknown() string {
	if a.Family == "" {
		return UnknownFamily
	}
	return a.Family
}

// MarginSnapshot holds one account's broker-reported margin figures at sync
// time. Replaced wholesale on the next sync.
type MarginSnapshot struct {
	AccountID        string          `json:"accountId"`
	Net              decimal.Decimal `json:"net"`
	Debits           decimal.Decimal `json:"debits"`
	LiquidCollateral decimal.Decimal `json:"liquidCollateral"`
	StockCollateral  decimal.Decimal `json:"stockCollateral"`
	FetchedAt        time.Time       `json:"fetchedAt"`
}

// Holding is one instrument held in an account. CollateralQuantity is pledged
// quantity on top of the free quantity; for exposure both count as owned.
type Holding struct {
	AccountID          string          `json:"accountId"`
	Symbol             string          `json:"symbol"`
	Kind               InstrumentKind  `json:"kind"`
	Quantity           decimal.Decimal `json:"quantity"`
	CollateralQuantity decimal.Decimal `json:"collateralQuantity"`
	AveragePrice       decimal.Decimal `json:"averagePrice"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
}

// Exposure is the total owned quantity, free plus pledged.
func (h Holding) Exposure() decimal.Decimal {
	return h.Quantity.Add(h.CollateralQuantity)
}

// Position is a derivative or intraday position with broker-supplied
// valuation. MarketValue is negative for short positions.
type Position struct {
	AccountID    string          `json:"accountId"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
	MarketValue  decimal.Decimal `json:"marketValue"`
	PnL          decimal.Decimal `json:"pnl"`
}

// CategoryMapping assigns a trading symbol (per instrument kind) to a
// category. Maintained by hand through the admin API.
type CategoryMapping struct {
	Symbol   string         `json:"symbol"`
	Kind     InstrumentKind `json:"kind"`
	Category Category       `json:"category"`
}

// AccountSummary is the valuation rollup of a single account's holdings.
type AccountSummary struct {
	AccountID          string          `json:"accountId"`
	AccountName        string          `json:"accountName"`
	Family             string          `json:"family"`
	TotalHoldings      int             `json:"totalHoldings"`
	TotalMarketValue   decimal.Decimal `json:"totalMarketValue"`
	TotalPnL           decimal.Decimal `json:"totalPnl"`
	TotalInvestment    decimal.Decimal `json:"totalInvestment"`
	TotalPnLPercentage decimal.Decimal `json:"totalPnlPercentage"`
}

// FamilySummary is the sum of member account summaries.
type FamilySummary struct {
	Family             string          `json:"family"`
	Accounts           int             `json:"accounts"`
	TotalHoldings      int             `json:"totalHoldings"`
	TotalMarketValue   decimal.Decimal `json:"totalMarketValue"`
	TotalPnL           decimal.Decimal `json:"totalPnl"`
	TotalInvestment    decimal.Decimal `json:"totalInvestment"`
	TotalPnLPercentage decimal.Decimal `json:"totalPnlPercentage"`
}

// CategoryTotals accumulates market value and invested amount per category.
type CategoryTotals struct {
	MarketValue    decimal.Decimal `json:"marketValue"`
	InvestedAmount decimal.Decimal `json:"investedAmount"`
}

// MarginStatus reports one account's margin usage. Warnings counts negative
// used/available figures (0-2); negatives are surfaced, never rejected.
type MarginStatus struct {
	AccountID       string          `json:"accountId"`
	UsedMargin      decimal.Decimal `json:"usedMargin"`
	AvailableMargin decimal.Decimal `json:"availableMargin"`
	Warnings        int             `json:"warnings"`
}

// MonthGroup is a bucket of positions sharing an expiry month extracted from
// the trading symbol, with per-bucket totals.
type MonthGroup struct {
	Month        string          `json:"month"`
	Positions    []Position      `json:"positions"`
	MarketValue  decimal.Decimal `json:"marketValue"`
	PnL          decimal.Decimal `json:"pnl"`
	RemainingPnL decimal.Decimal `json:"remainingPnl"`
}
