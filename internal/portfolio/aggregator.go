// Package portfolio contains the pure aggregation arithmetic behind the
// dashboard: per-holding valuation, account and family rollups, category
// breakdowns and expiry-month grouping. Nothing here performs I/O; callers
// fetch the data and hand it in.
package portfolio

import (
	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InvestedAmount values a holding at cost. Pledged collateral quantity counts
// as owned quantity, not a liability.
func InvestedAmount(h models.Holding) decimal.Decimal {
	return h.AveragePrice.Mul(h.Exposure())
}

// MarketValue values a holding at the last traded price.
func MarketValue(h models.Holding) decimal.Decimal {
	return h.LastPrice.Mul(h.Exposure())
}

// PnL is the unrealized gain of a holding.
func PnL(h models.Holding) decimal.Decimal {
	return MarketValue(h).Sub(InvestedAmount(h))
}

// PnLPercentage returns the holding's gain over cost, or zero when nothing
// was invested (free shares, bonus issues).
func PnLPercentage(h models.Holding) decimal.Decimal {
	invested := InvestedAmount(h)
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return PnL(h).Div(invested).Mul(hundred)
}

// Summarize rolls one account's holdings up into totals for the dashboard.
func Summarize(account models.Account, holdings []models.Holding) models.AccountSummary {
	s := models.AccountSummary{
		AccountID:   account.ID,
		AccountName: account.Name,
		Family:      account.FamilyOrUnknown(),
	}
	for _, h := range holdings {
		s.TotalHoldings++
		s.TotalMarketValue = s.TotalMarketValue.Add(MarketValue(h))
		s.TotalInvestment = s.TotalInvestment.Add(InvestedAmount(h))
		s.TotalPnL = s.TotalPnL.Add(PnL(h))
	}
	s.TotalPnLPercentage = percentage(s.TotalPnL, s.TotalInvestment)
	return s
}

// Rollup sums account summaries into a family summary. Every figure is a
// plain key-wise sum over independently computed account figures; the P&L
// percentage alone is re-derived from the summed totals.
func Rollup(family string, summaries []models.AccountSummary) models.FamilySummary {
	f := models.FamilySummary{Family: family, Accounts: len(summaries)}
	for _, s := range summaries {
		f.TotalHoldings += s.TotalHoldings
		f.TotalMarketValue = f.TotalMarketValue.Add(s.TotalMarketValue)
		f.TotalPnL = f.TotalPnL.Add(s.TotalPnL)
		f.TotalInvestment = f.TotalInvestment.Add(s.TotalInvestment)
	}
	f.TotalPnLPercentage = percentage(f.TotalPnL, f.TotalInvestment)
	return f
}

func percentage(pnl, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return pnl.Div(invested).Mul(hundred)
}

// CategoryLookup resolves a symbol and instrument kind to its assigned
// category; ok is false when no mapping exists.
type CategoryLookup func(symbol string, kind models.InstrumentKind) (models.Category, bool)

// CategoryBreakdown accumulates market value and invested amount per
// category. Unmapped holdings land in the CategoryUnmapped bucket, so the
// breakdown always accounts for every holding exactly once.
func CategoryBreakdown(holdings []models.Holding, lookup CategoryLookup) map[models.Category]models.CategoryTotals {
	out := make(map[models.Category]models.CategoryTotals)
	for _, h := range holdings {
		cat, ok := lookup(h.Symbol, h.Kind)
		if !ok {
			cat = models.CategoryUnmapped
		}
		totals := out[cat]
		totals.MarketValue = totals.MarketValue.Add(MarketValue(h))
		totals.InvestedAmount = totals.InvestedAmount.Add(InvestedAmount(h))
		out[cat] = totals
	}
	return out
}

// CategorySlice is one pie-chart wedge derived from a category breakdown.
type CategorySlice struct {
	Category    models.Category `json:"category"`
	MarketValue decimal.Decimal `json:"marketValue"`
	Share       decimal.Decimal `json:"share"`
}

// ChartSlices orders a breakdown for rendering. Categories with zero market
// value stay in the raw breakdown but are excluded here since a zero wedge
// has no area. Shares are percentages of the combined market value.
func ChartSlices(breakdown map[models.Category]models.CategoryTotals) []CategorySlice {
	order := append(append([]models.Category{}, models.KnownCategories...), models.CategoryUnmapped)
	total := decimal.Zero
	for _, t := range breakdown {
		total = total.Add(t.MarketValue)
	}

	slices := []CategorySlice{}
	for _, cat := range order {
		t, ok := breakdown[cat]
		if !ok || t.MarketValue.IsZero() {
			continue
		}
		slices = append(slices, CategorySlice{
			Category:    cat,
			MarketValue: t.MarketValue,
			Share:       percentage(t.MarketValue, total),
		})
	}
	return slices
}
