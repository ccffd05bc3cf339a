package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/analytics"
	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/logger"
)

// RouteStatsReader is the read side of route analytics.
type RouteStatsReader interface {
	TopRoutes(ctx context.Context, n int) ([]analytics.RouteCount, error)
	TotalSearches(ctx context.Context) (int64, error)
}

// AnalyticsHandler serves admin search analytics.  Stats is nil when
// Redis is not configured.
type AnalyticsHandler struct {
	Stats RouteStatsReader
	Log   *logger.Logger
}

func NewAnalyticsHandler(stats RouteStatsReader, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{Stats: stats, Log: log}
}

// defaultTopRoutes is the size of the ranking when no limit is given.
const defaultTopRoutes = 5

// TopRoutes handles GET /v1/analytics/top-routes?limit=N (1..100, default 5).
func (h *AnalyticsHandler) TopRoutes(c echo.Context) error {
	if h.Stats == nil {
		return respondError(c, nil, apperror.New(apperror.CodeAnalyticsDisabled, ""))
	}
	limit := defaultTopRoutes
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return respondError(c, h.Log, apperror.New(apperror.CodeValidation, "limit must be between 1 and 100"))
		}
		limit = n
	}
	ctx := c.Request().Context()
	routes, err := h.Stats.TopRoutes(ctx, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	total, err := h.Stats.TotalSearches(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"routes": routes, "total_searches": total})
}
