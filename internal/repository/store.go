package repository

import (
	"context"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// Store is the durable source of truth for trains and bookings.  It is the
// only synchronisation point between concurrent booking requests.
type Store interface {
	// WithinUnitOfWork runs fn inside one all-or-nothing unit of work.  If fn
	// returns an error, or ctx is cancelled before commit, nothing fn wrote
	// becomes visible.  Locks taken through the UnitOfWork are released
	// when WithinUnitOfWork returns.
	WithinUnitOfWork(ctx context.Context, fn func(UnitOfWork) error) error

	CreateTrain(ctx context.Context, t *model.Train) error
	GetTrain(ctx context.Context, id uint64) (model.Train, error)
	SearchTrains(ctx context.Context, q TrainSearchQuery) ([]model.Train, int64, error)

	// ListBookingsByUser returns the user's bookings newest first, each
	// joined with its train.
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// UnitOfWork is the set of operations available inside
// Store.WithinUnitOfWork.
type UnitOfWork interface {
	// LockTrain takes the exclusive per-train lock for the rest of the unit
	// of work and returns the latest committed row.  It fails with
	// ErrTrainNotFound or ErrLockTimeout.
	LockTrain(ctx context.Context, id uint64) (model.Train, error)

	// SetAvailableSeats writes the seat count of a locked train.
	SetAvailableSeats(ctx context.Context, trainID uint64, available uint32) error

	// UpdateTrain writes every mutable column of a locked train.
	UpdateTrain(ctx context.Context, t model.Train) error

	// InsertBooking appends b to the ledger and sets b.ID.  A PNR collision
	// is reported as ErrDuplicateReference and leaves the unit of work
	// usable so the caller may retry with a new PNR.
	InsertBooking(ctx context.Context, b *model.Booking) error
}

// TrainSearchQuery filters the public train search.  Source and
// Destination match case-insensitively anywhere in the station name.  When
// Date is set, only trains departing on that calendar day (in Date's
// location) match.
type TrainSearchQuery struct {
	Source      string
	Destination string
	Date        *time.Time
	Limit       int
	Offset      int
}

// DayBounds returns the [start, end) interval of the query date.
func (q TrainSearchQuery) DayBounds() (time.Time, time.Time) {
	d := *q.Date
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return start, start.AddDate(0, 0, 1)
}
