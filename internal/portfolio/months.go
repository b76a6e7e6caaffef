package portfolio

import (
	"strings"

	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/shopspring/decimal"
)

// OtherMonth buckets positions whose symbol carries no month token.
const OtherMonth = "Other"

// monthTokens maps the broker's three-letter symbol tokens to full month
// names. Order matters: extraction scans in this order and the first token
// found wins. The symbol format is a broker convention, not a date, so no
// date parsing is involved.
var monthTokens = []struct {
	abbr string
	full string
}{
	{"JAN", "January"},
	{"FEB", "February"},
	{"MAR", "March"},
	{"APR", "April"},
	{"MAY", "May"},
	{"JUN", "June"},
	{"JUL", "July"},
	{"AUG", "August"},
	{"SEP", "September"},
	{"OCT", "October"},
	{"NOV", "November"},
	{"DEC", "December"},
}

// monthOrder fixes bucket iteration for rendering: calendar months first,
// then Other.
var monthOrder = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
	OtherMonth,
}

// ExpiryMonth extracts the expiry month name from a trading symbol, or
// OtherMonth when no token matches.
func ExpiryMonth(symbol string) string {
	for _, m := range monthTokens {
		if strings.Contains(symbol, m.abbr) {
			return m.full
		}
	}
	return OtherMonth
}

// RemainingPnL is the unrealized remainder of a position's theoretical
// maximum profit. Positions here are typically short options, where the
// negated market value approximates premium collected; the convention does
// not generalize to long instruments.
func RemainingPnL(p models.Position) decimal.Decimal {
	return p.MarketValue.Neg().Sub(p.PnL)
}

// GroupByMonth buckets positions by expiry month with per-bucket totals.
// Buckets come back in calendar order with Other last, regardless of input
// order; empty buckets are omitted.
func GroupByMonth(positions []models.Position) []models.MonthGroup {
	byMonth := make(map[string][]models.Position)
	for _, p := range positions {
		month := ExpiryMonth(p.Symbol)
		byMonth[month] = append(byMonth[month], p)
	}

	groups := []models.MonthGroup{}
	for _, month := range monthOrder {
		bucket, ok := byMonth[month]
		if !ok {
			continue
		}
		g := models.MonthGroup{Month: month, Positions: bucket}
		for _, p := range bucket {
			g.MarketValue = g.MarketValue.Add(p.MarketValue)
			g.PnL = g.PnL.Add(p.PnL)
			g.RemainingPnL = g.RemainingPnL.Add(RemainingPnL(p))
		}
		groups = append(groups, g)
	}
	return groups
}
