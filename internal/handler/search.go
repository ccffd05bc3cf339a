package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

// SearchHandler serves the public train search.
type SearchHandler struct {
	Trains *service.TrainService
	Log    *logger.Logger
}

func NewSearchHandler(svc *service.TrainService, log *logger.Logger) *SearchHandler {
	return &SearchHandler{Trains: svc, Log: log}
}

// Search handles GET /v1/trains/search?source=&destination=&date=YYYY-MM-DD&limit=&offset=.
func (h *SearchHandler) Search(c echo.Context) error {
	q := repository.TrainSearchQuery{
		Source:      c.QueryParam("source"),
		Destination: c.QueryParam("destination"),
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return respondError(c, h.Log, apperror.New(apperror.CodeValidation, "date must be YYYY-MM-DD").
				WithDetails(map[string]any{"field": "date"}))
		}
		q.Date = &d
	}
	var err error
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return respondError(c, h.Log, err)
	}
	if q.Offset, err = intParam(c, "offset"); err != nil {
		return respondError(c, h.Log, err)
	}

	page, err := h.Trains.Search(c.Request().Context(), q)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, page)
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.New(apperror.CodeValidation, name+" must be a non-negative integer").
			WithDetails(map[string]any{"field": name})
	}
	return n, nil
}
