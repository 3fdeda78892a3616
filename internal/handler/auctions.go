package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auctionhouse/internal/paas"
	"auctionhouse/internal/repository"
	"auctionhouse/internal/service"
)

type AuctionHandler struct {
	Ingest       *service.IngestService
	QueryService *service.AuctionQueryService
	Logger       *zap.Logger
}

func (h *AuctionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/auctions")
	group.POST("/sync", h.sync)
	group.GET("/sync-state", h.listSyncState)
	group.GET("/anomalies", h.listAnomalies)
	group.GET("", h.listAuctions)
	group.GET("/:uuid", h.getAuction)
}

// @Summary Run auction sync
// @Tags auctions
// @Param scope query string false "sync scope (recent|full)"
// @Param pages query int false "max pages (0 = scope default)"
// @Param force query bool false "ignore unchanged feed watermark"
// @Success 200 {object} apiResponse
// @Router /api/auctions/sync [post]
func (h *AuctionHandler) sync(c *gin.Context) {
	if h.Ingest == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	scope := strings.TrimSpace(c.Query("scope"))
	switch strings.ToLower(scope) {
	case "", service.ScopeRecent, service.ScopeFull:
	default:
		Error(c, http.StatusBadRequest, "unsupported scope: "+scope, nil)
		return
	}

	result, err := h.Ingest.Sync(c.Request.Context(), service.SyncOptions{
		Scope: scope,
		Pages: intQuery(c, "pages", 0),
		Force: boolQueryDefault(c, "force", false),
	})
	if err != nil {
		if h.Logger != nil && !errors.Is(err, service.ErrSyncRunning) {
			h.Logger.Warn("auction sync failed", zap.Error(err))
		}
		Fail(c, err, map[string]any{"scope": result.Scope})
		return
	}
	paas.LogBestEffort(c, "auction_sync_manual", "info", map[string]any{
		"scope":    result.Scope,
		"run_id":   result.RunID,
		"pages":    result.Pages,
		"listings": result.Listings,
		"rows":     result.Rows,
	})
	Ok(c, result, nil)
}

// @Summary List sync states
// @Tags auctions
// @Success 200 {object} apiResponse
// @Router /api/auctions/sync-state [get]
func (h *AuctionHandler) listSyncState(c *gin.Context) {
	if h.QueryService == nil || h.QueryService.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.QueryService.SyncStates(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list sync state failed", zap.Error(err))
		}
		Fail(c, err, nil)
		return
	}
	Ok(c, states, nil)
}

// @Summary List auctions
// @Tags auctions
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param item_id query string false "skyblock item id"
// @Param auctioneer query string false "seller uuid"
// @Param tier query string false "rarity tier"
// @Param category query string false "category"
// @Param reforge query string false "reforge"
// @Param pet_type query string false "pet type"
// @Param bin query bool false "buy it now"
// @Param claimed query bool false "claimed"
// @Param active query bool false "not yet ended"
// @Param min_price query string false "min starting bid"
// @Param max_price query string false "max starting bid"
// @Param order_by query string false "order by field"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/auctions [get]
func (h *AuctionHandler) listAuctions(c *gin.Context) {
	if h.QueryService == nil || h.QueryService.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"price":        "price",
		"unit_price":   "unit_price",
		"highest_bid":  "highest_bid",
		"end_time":     "end_time",
		"start_time":   "start_time",
		"last_updated": "last_updated",
	})

	result, err := h.QueryService.ListAuctions(c.Request.Context(), repository.ListAuctionsParams{
		Limit:      limit,
		Offset:     offset,
		ItemID:     strQueryPtr(c, "item_id"),
		Auctioneer: strQueryPtr(c, "auctioneer"),
		Tier:       strQueryPtr(c, "tier"),
		Category:   strQueryPtr(c, "category"),
		Reforge:    strQueryPtr(c, "reforge"),
		PetType:    strQueryPtr(c, "pet_type"),
		Bin:        boolQueryPtr(c, "bin"),
		Claimed:    boolQueryPtr(c, "claimed"),
		Active:     boolQueryPtr(c, "active"),
		MinPrice:   decimalQueryPtr(c, "min_price"),
		MaxPrice:   decimalQueryPtr(c, "max_price"),
		OrderBy:    orderBy,
		Asc:        boolQueryPtr(c, "ascending"),
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list auctions failed", zap.Error(err))
		}
		Fail(c, err, nil)
		return
	}
	Ok(c, result.Items, paginationMeta(limit, offset, result.Total))
}

// @Summary Get auction
// @Tags auctions
// @Param uuid path string true "auction uuid"
// @Success 200 {object} apiResponse
// @Router /api/auctions/{uuid} [get]
func (h *AuctionHandler) getAuction(c *gin.Context) {
	if h.QueryService == nil || h.QueryService.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("uuid"))
	if id == "" {
		Error(c, http.StatusBadRequest, "uuid is required", nil)
		return
	}
	item, err := h.QueryService.GetAuction(c.Request.Context(), id)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("get auction failed", zap.String("uuid", id), zap.Error(err))
		}
		Fail(c, err, nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "auction not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List listing anomalies
// @Tags auctions
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param listing_id query string false "auction uuid"
// @Param run_id query string false "sync run id"
// @Param kind query string false "anomaly kind"
// @Success 200 {object} apiResponse
// @Router /api/auctions/anomalies [get]
func (h *AuctionHandler) listAnomalies(c *gin.Context) {
	if h.QueryService == nil || h.QueryService.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	result, err := h.QueryService.ListAnomalies(c.Request.Context(), repository.ListAnomaliesParams{
		Limit:     limit,
		Offset:    offset,
		ListingID: strQueryPtr(c, "listing_id"),
		RunID:     strQueryPtr(c, "run_id"),
		Kind:      strQueryPtr(c, "kind"),
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list anomalies failed", zap.Error(err))
		}
		Fail(c, err, nil)
		return
	}
	Ok(c, result.Items, paginationMeta(limit, offset, result.Total))
}
