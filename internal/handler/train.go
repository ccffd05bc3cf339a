package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

// TrainHandler serves the admin train management endpoints.
type TrainHandler struct {
	Trains *service.TrainService
	Log    *logger.Logger
}

func NewTrainHandler(svc *service.TrainService, log *logger.Logger) *TrainHandler {
	return &TrainHandler{Trains: svc, Log: log}
}

type createTrainReq struct {
	TrainNumber    string    `json:"train_number" validate:"required,max=10"`
	Name           string    `json:"name" validate:"max=100"`
	Source         string    `json:"source" validate:"required,max=100"`
	Destination    string    `json:"destination" validate:"required,max=100"`
	DepartureTime  time.Time `json:"departure_time" validate:"required"`
	ArrivalTime    time.Time `json:"arrival_time" validate:"required"`
	TotalSeats     uint32    `json:"total_seats" validate:"required,gt=0"`
	AvailableSeats *uint32   `json:"available_seats"`
}

// updateTrainReq backs both PUT and PATCH.  PUT additionally requires the
// full set of mutable fields.
type updateTrainReq struct {
	TrainNumber    *string    `json:"train_number" validate:"omitempty,max=10"`
	Name           *string    `json:"name" validate:"omitempty,max=100"`
	Source         *string    `json:"source" validate:"omitempty,max=100"`
	Destination    *string    `json:"destination" validate:"omitempty,max=100"`
	DepartureTime  *time.Time `json:"departure_time"`
	ArrivalTime    *time.Time `json:"arrival_time"`
	TotalSeats     *uint32    `json:"total_seats"`
	AvailableSeats *uint32    `json:"available_seats"`
}

type replaceTrainReq struct {
	TrainNumber    *string    `json:"train_number" validate:"required,max=10"`
	Name           *string    `json:"name" validate:"required,max=100"`
	Source         *string    `json:"source" validate:"required,max=100"`
	Destination    *string    `json:"destination" validate:"required,max=100"`
	DepartureTime  *time.Time `json:"departure_time" validate:"required"`
	ArrivalTime    *time.Time `json:"arrival_time" validate:"required"`
	TotalSeats     *uint32    `json:"total_seats"`
	AvailableSeats *uint32    `json:"available_seats" validate:"required"`
}

// Create handles POST /v1/trains.
func (h *TrainHandler) Create(c echo.Context) error {
	var req createTrainReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	t, err := h.Trains.Create(c.Request().Context(), service.TrainInput{
		TrainNumber:    req.TrainNumber,
		Name:           req.Name,
		Source:         req.Source,
		Destination:    req.Destination,
		DepartureTime:  req.DepartureTime,
		ArrivalTime:    req.ArrivalTime,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.AvailableSeats,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Get handles GET /v1/trains/:id.
func (h *TrainHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	t, err := h.Trains.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Replace handles PUT /v1/trains/:id.
func (h *TrainHandler) Replace(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req replaceTrainReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	return h.apply(c, id, service.TrainPatch(req))
}

// Patch handles PATCH /v1/trains/:id.
func (h *TrainHandler) Patch(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req updateTrainReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	return h.apply(c, id, service.TrainPatch(req))
}

func (h *TrainHandler) apply(c echo.Context, id uint64, p service.TrainPatch) error {
	t, err := h.Trains.Update(c.Request().Context(), id, p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}
