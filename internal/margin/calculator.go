// Package margin computes per-account margin availability from a broker
// margin snapshot. All functions are pure; a missing snapshot is treated as
// all-zero figures rather than an error.
package margin

import (
	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Availability derives used and available margin for one account.
//
// The broker lets at most 50% of pledged liquid collateral back open
// positions, so half of the current debits is attributed to collateral.
// Doubling what remains gives the collateral-constrained ceiling; when that
// ceiling exceeds the net free margin, net becomes the binding constraint
// instead.
func Availability(snap *models.MarginSnapshot) models.MarginStatus {
	if snap == nil {
		return models.MarginStatus{}
	}

	used := snap.Debits
	availableLiquid := snap.LiquidCollateral.Sub(snap.Debits.Div(two))
	available := availableLiquid.Mul(two)
	if available.GreaterThan(snap.Net) {
		available = snap.Net
	}

	status := models.MarginStatus{
		AccountID:       snap.AccountID,
		UsedMargin:      used,
		AvailableMargin: available,
	}
	status.Warnings = warningCount(status)
	return status
}

// warningCount flags negative figures for the dashboard. Each of used and
// available margin contributes one warning independently.
func warningCount(s models.MarginStatus) int {
	n := 0
	if s.UsedMargin.IsNegative() {
		n++
	}
	if s.AvailableMargin.IsNegative() {
		n++
	}
	return n
}
