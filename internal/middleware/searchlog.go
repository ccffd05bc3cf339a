package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/analytics"
	"github.com/iliyamo/train-seat-booking/internal/model"
)

// searchParams are the query parameters copied into the search log.
var searchParams = []string{"source", "destination", "date"}

// SearchLogger hands every request it wraps to rec after the handler
// returns.  Recording happens outside any booking lock and its outcome
// never changes the response.
func SearchLogger(rec analytics.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			params := make(map[string]string, len(searchParams))
			for _, p := range searchParams {
				if v := strings.TrimSpace(c.QueryParam(p)); v != "" {
					params[p] = v
				}
			}
			entry := model.SearchLog{
				Endpoint:  c.Request().URL.Path,
				Params:    params,
				ElapsedMS: float64(time.Since(start).Microseconds()) / 1000,
				Timestamp: start.UTC(),
			}
			if uid, ok := UserID(c); ok {
				entry.UserID = &uid
			}
			rec.Record(entry)
			return err
		}
	}
}
