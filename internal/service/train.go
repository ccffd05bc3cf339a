package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
)

// Search pagination bounds.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// TrainService manages the train inventory on behalf of administrators
// and serves the public search.
type TrainService struct {
	store repository.Store
}

func NewTrainService(store repository.Store) *TrainService {
	return &TrainService{store: store}
}

// TrainInput carries the fields of a new train.  A nil AvailableSeats
// starts the train fully available.
type TrainInput struct {
	TrainNumber    string
	Name           string
	Source         string
	Destination    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	TotalSeats     uint32
	AvailableSeats *uint32
}

// TrainPatch carries the fields to change on an existing train.  Nil
// fields are left untouched.  TotalSeats may only repeat the current
// value.
type TrainPatch struct {
	TrainNumber    *string
	Name           *string
	Source         *string
	Destination    *string
	DepartureTime  *time.Time
	ArrivalTime    *time.Time
	TotalSeats     *uint32
	AvailableSeats *uint32
}

// SearchPage is one page of search results.
type SearchPage struct {
	Trains []model.Train `json:"trains"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Create validates in and stores a new train.
func (s *TrainService) Create(ctx context.Context, in TrainInput) (model.Train, error) {
	t := model.Train{
		TrainNumber:    strings.TrimSpace(in.TrainNumber),
		Name:           strings.TrimSpace(in.Name),
		Source:         strings.TrimSpace(in.Source),
		Destination:    strings.TrimSpace(in.Destination),
		DepartureTime:  in.DepartureTime.UTC(),
		ArrivalTime:    in.ArrivalTime.UTC(),
		TotalSeats:     in.TotalSeats,
		AvailableSeats: in.TotalSeats,
	}
	if in.AvailableSeats != nil {
		t.AvailableSeats = *in.AvailableSeats
	}
	if err := validateTrain(t); err != nil {
		return model.Train{}, err
	}
	if err := s.store.CreateTrain(ctx, &t); err != nil {
		return model.Train{}, translateStoreError(err)
	}
	return t, nil
}

// Get returns a train by id.
func (s *TrainService) Get(ctx context.Context, id uint64) (model.Train, error) {
	t, err := s.store.GetTrain(ctx, id)
	if err != nil {
		return model.Train{}, translateStoreError(err)
	}
	return t, nil
}

// Update applies p under the train's inventory lock so it can never
// interleave with a booking on the same train.
func (s *TrainService) Update(ctx context.Context, id uint64, p TrainPatch) (model.Train, error) {
	var updated model.Train
	err := s.store.WithinUnitOfWork(ctx, func(u repository.UnitOfWork) error {
		cur, err := u.LockTrain(ctx, id)
		if err != nil {
			return err
		}
		if p.TotalSeats != nil && *p.TotalSeats != cur.TotalSeats {
			return apperror.New(apperror.CodeValidation, "total_seats cannot be changed").
				WithDetails(map[string]any{"field": "total_seats", "total_seats": cur.TotalSeats})
		}
		next := cur
		applyString(&next.TrainNumber, p.TrainNumber)
		applyString(&next.Name, p.Name)
		applyString(&next.Source, p.Source)
		applyString(&next.Destination, p.Destination)
		if p.DepartureTime != nil {
			next.DepartureTime = p.DepartureTime.UTC()
		}
		if p.ArrivalTime != nil {
			next.ArrivalTime = p.ArrivalTime.UTC()
		}
		if p.AvailableSeats != nil {
			next.AvailableSeats = *p.AvailableSeats
		}
		if err := validateTrain(next); err != nil {
			return err
		}
		if err := u.UpdateTrain(ctx, next); err != nil {
			return err
		}
		// Read back under the lock so store-maintained columns such as
		// updated_at are current.
		updated, err = u.LockTrain(ctx, id)
		return err
	})
	if err != nil {
		return model.Train{}, translateStoreError(err)
	}
	return updated, nil
}

// Search returns one page of trains matching q.  Limit is clamped to
// [1, MaxSearchLimit] and defaults to DefaultSearchLimit.
func (s *TrainService) Search(ctx context.Context, q repository.TrainSearchQuery) (SearchPage, error) {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultSearchLimit
	case q.Limit > MaxSearchLimit:
		q.Limit = MaxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	trains, total, err := s.store.SearchTrains(ctx, q)
	if err != nil {
		return SearchPage{}, translateStoreError(err)
	}
	return SearchPage{Trains: trains, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func validateTrain(t model.Train) error {
	fieldErr := func(field, msg string) error {
		return apperror.New(apperror.CodeValidation, msg).WithDetails(map[string]any{"field": field})
	}
	switch {
	case t.TrainNumber == "" || len(t.TrainNumber) > 10:
		return fieldErr("train_number", "train_number must be 1 to 10 characters")
	case t.Source == "" || t.Destination == "":
		return fieldErr("source", "source and destination are required")
	case t.TotalSeats == 0:
		return fieldErr("total_seats", "total_seats must be greater than zero")
	case t.AvailableSeats > t.TotalSeats:
		return fieldErr("available_seats", "available_seats cannot exceed total_seats")
	case !t.DepartureTime.Before(t.ArrivalTime):
		return fieldErr("arrival_time", "departure_time must be before arrival_time")
	}
	return nil
}
