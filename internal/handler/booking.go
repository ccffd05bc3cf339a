package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/middleware"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

// BookingHandler serves booking submission and the caller's booking list.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      *logger.Logger
}

func NewBookingHandler(svc *service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{Bookings: svc, Log: log}
}

// createBookingReq is validated only for shape; the seat count rule lives
// in BookingService so every caller gets the same error.
type createBookingReq struct {
	TrainID     uint64 `json:"train_id" validate:"required"`
	SeatsBooked *int   `json:"seats_booked" validate:"required"`
}

type bookingResp struct {
	PNR         string              `json:"pnr"`
	TrainID     uint64              `json:"train_id"`
	SeatsBooked uint32              `json:"seats_booked"`
	Status      model.BookingStatus `json:"status"`
	BookingTime time.Time           `json:"booking_time"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, h.Log, apperror.New(apperror.CodeUnauthorized, ""))
	}
	var req createBookingReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Bookings.Book(c.Request().Context(), uid, req.TrainID, *req.SeatsBooked)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, bookingResp{
		PNR:         b.PNR,
		TrainID:     b.TrainID,
		SeatsBooked: b.SeatsBooked,
		Status:      b.Status,
		BookingTime: b.BookedAt,
	})
}

// ListMine handles GET /v1/bookings/my.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, h.Log, apperror.New(apperror.CodeUnauthorized, ""))
	}
	out, err := h.Bookings.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}
