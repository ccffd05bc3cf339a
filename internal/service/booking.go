// Package service holds the business rules that sit between the HTTP
// handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/metrics"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/utils"
)

// BookingService commits seat bookings against the train inventory.  All
// checks and writes for one booking run inside a single unit of work that
// holds the train's exclusive lock, so two bookings on the same train are
// applied one after the other and can never oversell it.
type BookingService struct {
	store       repository.Store
	log         *logger.Logger
	now         func() time.Time
	newPNR      func() (string, error)
	maxAttempts int
}

// BookingOption customises a BookingService.
type BookingOption func(*BookingService)

// WithClock replaces the wall clock used for the departure check and the
// booking timestamp.
func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

// WithPNRGenerator replaces the booking reference generator.
func WithPNRGenerator(gen func() (string, error)) BookingOption {
	return func(s *BookingService) { s.newPNR = gen }
}

// NewBookingService wires a BookingService over store.
func NewBookingService(store repository.Store, cfg config.BookingConfig, log *logger.Logger, opts ...BookingOption) *BookingService {
	if log == nil {
		log = logger.Nop()
	}
	s := &BookingService{
		store:       store,
		log:         log,
		now:         time.Now,
		newPNR:      utils.NewPNR,
		maxAttempts: cfg.PNRMaxAttempts,
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book reserves seats on trainID for userID and returns the CONFIRMED
// booking.  On any error the train's seat count and the booking ledger are
// left exactly as they were.
func (s *BookingService) Book(ctx context.Context, userID, trainID uint64, seats int) (model.Booking, error) {
	ctx = s.log.WithFields(ctx, map[string]any{"train_id": trainID, "seats_requested": seats})

	if seats <= 0 {
		err := apperror.New(apperror.CodeValidation, "seats_booked must be greater than zero").
			WithDetails(map[string]any{"field": "seats_booked"})
		s.record(ctx, err)
		return model.Booking{}, err
	}

	var booking model.Booking
	err := s.store.WithinUnitOfWork(ctx, func(u repository.UnitOfWork) error {
		lockStart := time.Now()
		train, err := u.LockTrain(ctx, trainID)
		metrics.ObserveLockWait(lockStart)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if train.HasDeparted(now) {
			return apperror.New(apperror.CodeDeparted, "train has already departed").
				WithDetails(map[string]any{"departure_time": train.DepartureTime})
		}
		if uint64(train.AvailableSeats) < uint64(seats) {
			return apperror.New(apperror.CodeInsufficientSeats,
				fmt.Sprintf("only %d seats available", train.AvailableSeats)).
				WithDetails(map[string]any{"available": train.AvailableSeats, "requested": seats})
		}

		if err := u.SetAvailableSeats(ctx, trainID, train.AvailableSeats-uint32(seats)); err != nil {
			return fmt.Errorf("decrement seats: %w", err)
		}
		booking = model.Booking{
			UserID:      userID,
			TrainID:     trainID,
			SeatsBooked: uint32(seats),
			Status:      model.BookingConfirmed,
			BookedAt:    now.Truncate(time.Microsecond),
		}
		return s.insertWithFreshPNR(ctx, u, &booking)
	})
	if err != nil {
		err = translateStoreError(err)
		s.record(ctx, err)
		return model.Booking{}, err
	}

	metrics.SeatsBooked.Add(float64(seats))
	s.record(s.log.WithField(ctx, "pnr", booking.PNR), nil)
	return booking, nil
}

// insertWithFreshPNR inserts b, drawing a new reference only when the
// previous one collided with an existing booking.
func (s *BookingService) insertWithFreshPNR(ctx context.Context, u repository.UnitOfWork, b *model.Booking) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		pnr, err := s.newPNR()
		if err != nil {
			return err
		}
		if !utils.IsPNR(pnr) {
			return fmt.Errorf("generated booking reference %q is malformed", pnr)
		}
		b.PNR = pnr
		err = u.InsertBooking(ctx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return fmt.Errorf("insert booking: %w", err)
		}
		metrics.PNRCollisions.Inc()
		s.log.Debug(s.log.WithField(ctx, "attempt", attempt), "pnr collision, regenerating")
	}
	b.PNR = ""
	return apperror.New(apperror.CodeReferenceAllocation,
		fmt.Sprintf("no unique booking reference after %d attempts", s.maxAttempts))
}

// ListForUser returns the caller's bookings, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	out, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "list bookings")
	}
	return out, nil
}

func (s *BookingService) record(ctx context.Context, err error) {
	if err == nil {
		metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
		s.log.Info(ctx, "booking confirmed")
		return
	}
	code := apperror.CodeOf(err)
	metrics.BookingsTotal.WithLabelValues(strings.ToLower(string(code))).Inc()
	switch code {
	case apperror.CodeReferenceAllocation, apperror.CodeInternal:
		s.log.Error(ctx, "booking failed", err)
	case apperror.CodeContentionTimeout:
		s.log.Warn(ctx, "booking lock contention", err)
	default:
		s.log.Debug(ctx, "booking rejected: "+err.Error())
	}
}

// translateStoreError maps repository sentinels onto the public taxonomy.
// Errors that already carry a code pass through unchanged.
func translateStoreError(err error) error {
	if apperror.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrTrainNotFound):
		return apperror.Wrap(apperror.CodeNotFound, err, "train not found")
	case errors.Is(err, repository.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.CodeContentionTimeout, err, "timed out waiting for the train inventory lock")
	case errors.Is(err, repository.ErrDuplicateTrainNumber):
		return apperror.Wrap(apperror.CodeConflict, err, "train number already exists")
	case errors.Is(err, repository.ErrSeatsOutOfRange):
		return apperror.Wrap(apperror.CodeValidation, err, "available_seats must be between 0 and total_seats")
	default:
		return apperror.Wrap(apperror.CodeInternal, err, "storage failure")
	}
}
