package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/deepakgees/AssetManagement-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Router wires all handlers.
func Router(svc *service.PortfolioService, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/accounts", func(c *gin.Context) { handleCreateAccount(c, svc) })
	r.GET("/accounts", func(c *gin.Context) { handleListAccounts(c, svc) })
	r.GET("/accounts/:id", func(c *gin.Context) { handleGetAccount(c, svc) })
	r.PUT("/accounts/:id", func(c *gin.Context) { handleUpdateAccount(c, svc) })
	r.DELETE("/accounts/:id", func(c *gin.Context) { handleDeleteAccount(c, svc) })
	r.POST("/accounts/:id/sync", func(c *gin.Context) { handleSyncAccount(c, svc) })
	r.GET("/accounts/:id/holdings", func(c *gin.Context) { handleAccountHoldings(c, svc) })
	r.GET("/accounts/:id/positions", func(c *gin.Context) { handleAccountPositions(c, svc) })
	r.GET("/accounts/:id/margins", func(c *gin.Context) { handleAccountMargins(c, svc) })

	r.GET("/families", func(c *gin.Context) { handleListFamilies(c, svc) })
	r.GET("/families/:name/summary", func(c *gin.Context) { handleFamilySummary(c, svc) })
	r.GET("/families/:name/categories", func(c *gin.Context) { handleFamilyCategories(c, svc) })
	r.GET("/families/:name/margins", func(c *gin.Context) { handleFamilyMargins(c, svc) })
	r.GET("/families/:name/positions", func(c *gin.Context) { handleFamilyPositions(c, svc) })

	r.PUT("/category-mappings", func(c *gin.Context) { handleUpsertMapping(c, svc) })
	r.GET("/category-mappings", func(c *gin.Context) { handleListMappings(c, svc) })
	r.DELETE("/category-mappings/:symbol", func(c *gin.Context) { handleDeleteMapping(c, svc) })
	return r
}

type accountRequest struct {
	Name         string `json:"name" binding:"required"`
	Family       string `json:"family"`
	BrokerUserID string `json:"brokerUserId"`
}

func handleCreateAccount(c *gin.Context, svc *service.PortfolioService) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := svc.CreateAccount(c.Request.Context(), service.AccountInput{
		Name:         req.Name,
		Family:       req.Family,
		BrokerUserID: req.BrokerUserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func handleListAccounts(c *gin.Context, svc *service.PortfolioService) {
	accounts, err := svc.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func handleGetAccount(c *gin.Context, svc *service.PortfolioService) {
	account, err := svc.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func handleUpdateAccount(c *gin.Context, svc *service.PortfolioService) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := svc.UpdateAccount(c.Request.Context(), c.Param("id"), service.AccountInput{
		Name:         req.Name,
		Family:       req.Family,
		BrokerUserID: req.BrokerUserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func handleDeleteAccount(c *gin.Context, svc *service.PortfolioService) {
	if err := svc.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func handleSyncAccount(c *gin.Context, svc *service.PortfolioService) {
	result, err := svc.SyncAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func handleAccountHoldings(c *gin.Context, svc *service.PortfolioService) {
	holdings, err := svc.AccountHoldings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := []gin.H{}
	for _, h := range holdings {
		resp = append(resp, holdingJSON(h))
	}
	c.JSON(http.StatusOK, gin.H{"holdings": resp})
}

func handleAccountPositions(c *gin.Context, svc *service.PortfolioService) {
	positions, err := svc.AccountPositions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := []gin.H{}
	for _, p := range positions {
		resp = append(resp, positionJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"positions": resp})
}

func handleAccountMargins(c *gin.Context, svc *service.PortfolioService) {
	status, err := svc.AccountMargins(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accountId":       status.AccountID,
		"usedMargin":      status.UsedMargin.StringFixed(2),
		"availableMargin": status.AvailableMargin.StringFixed(2),
		"warnings":        status.Warnings,
	})
}

func handleListFamilies(c *gin.Context, svc *service.PortfolioService) {
	groups, err := svc.ListFamilies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"families": groups})
}

func handleFamilySummary(c *gin.Context, svc *service.PortfolioService) {
	report, err := svc.FamilySummary(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	accounts := []gin.H{}
	for _, s := range report.Accounts {
		accounts = append(accounts, gin.H{
			"accountId":          s.AccountID,
			"accountName":        s.AccountName,
			"totalHoldings":      s.TotalHoldings,
			"totalMarketValue":   s.TotalMarketValue.StringFixed(2),
			"totalPnl":           s.TotalPnL.StringFixed(2),
			"totalInvestment":    s.TotalInvestment.StringFixed(2),
			"totalPnlPercentage": s.TotalPnLPercentage.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"family":             report.Summary.Family,
		"accounts":           accounts,
		"totalHoldings":      report.Summary.TotalHoldings,
		"totalMarketValue":   report.Summary.TotalMarketValue.StringFixed(2),
		"totalPnl":           report.Summary.TotalPnL.StringFixed(2),
		"totalInvestment":    report.Summary.TotalInvestment.StringFixed(2),
		"totalPnlPercentage": report.Summary.TotalPnLPercentage.StringFixed(2),
	})
}

func handleFamilyCategories(c *gin.Context, svc *service.PortfolioService) {
	report, err := svc.FamilyCategories(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	breakdown := gin.H{}
	for cat, totals := range report.Breakdown {
		breakdown[string(cat)] = gin.H{
			"marketValue":    totals.MarketValue.StringFixed(2),
			"investedAmount": totals.InvestedAmount.StringFixed(2),
		}
	}
	slices := []gin.H{}
	for _, s := range report.Slices {
		slices = append(slices, gin.H{
			"category":    string(s.Category),
			"marketValue": s.MarketValue.StringFixed(2),
			"share":       s.Share.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"family":    report.Family,
		"breakdown": breakdown,
		"slices":    slices,
	})
}

func handleFamilyMargins(c *gin.Context, svc *service.PortfolioService) {
	margins, err := svc.FamilyMargins(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	accounts := []gin.H{}
	for _, st := range margins.Accounts {
		accounts = append(accounts, gin.H{
			"accountId":       st.AccountID,
			"usedMargin":      st.UsedMargin.StringFixed(2),
			"availableMargin": st.AvailableMargin.StringFixed(2),
			"warnings":        st.Warnings,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"family":         margins.Family,
		"accounts":       accounts,
		"totalUsed":      margins.TotalUsed.StringFixed(2),
		"totalAvailable": margins.TotalAvailable.StringFixed(2),
		"warnings":       margins.Warnings,
	})
}

func handleFamilyPositions(c *gin.Context, svc *service.PortfolioService) {
	groups, err := svc.FamilyPositions(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	months := []gin.H{}
	for _, g := range groups {
		positions := []gin.H{}
		for _, p := range g.Positions {
			positions = append(positions, positionJSON(p))
		}
		months = append(months, gin.H{
			"month":        g.Month,
			"positions":    positions,
			"marketValue":  g.MarketValue.StringFixed(2),
			"pnl":          g.PnL.StringFixed(2),
			"remainingPnl": g.RemainingPnL.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}

type mappingRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Kind     string `json:"kind" binding:"required"`
	Category string `json:"category" binding:"required"`
}

func handleUpsertMapping(c *gin.Context, svc *service.PortfolioService) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mapping := models.CategoryMapping{
		Symbol:   req.Symbol,
		Kind:     models.InstrumentKind(req.Kind),
		Category: models.Category(req.Category),
	}
	if err := svc.UpsertCategoryMapping(c.Request.Context(), mapping); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

func handleListMappings(c *gin.Context, svc *service.PortfolioService) {
	mappings, err := svc.ListCategoryMappings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": mappings})
}

func handleDeleteMapping(c *gin.Context, svc *service.PortfolioService) {
	kind := models.InstrumentKind(c.DefaultQuery("kind", string(models.InstrumentEquity)))
	if err := svc.DeleteCategoryMapping(c.Request.Context(), c.Param("symbol"), kind); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func holdingJSON(h models.Holding) gin.H {
	return gin.H{
		"symbol":             h.Symbol,
		"kind":               string(h.Kind),
		"quantity":           h.Quantity.String(),
		"collateralQuantity": h.CollateralQuantity.String(),
		"averagePrice":       h.AveragePrice.StringFixed(2),
		"lastPrice":          h.LastPrice.StringFixed(2),
	}
}

func positionJSON(p models.Position) gin.H {
	return gin.H{
		"symbol":      p.Symbol,
		"quantity":    p.Quantity.String(),
		"marketValue": p.MarketValue.StringFixed(2),
		"pnl":         p.PnL.StringFixed(2),
	}
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicate):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func logMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}).Info("request completed")
	}
}
