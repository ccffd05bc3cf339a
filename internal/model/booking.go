package model

import "time"

// BookingStatus enumerates the states a booking can be in.  Only
// CONFIRMED is produced today; WAITLISTED and CANCELLED are reserved and
// have no transitions into or out of them.
type BookingStatus string

const (
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingWaitlisted BookingStatus = "WAITLISTED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingWaitlisted, BookingCancelled:
		return true
	}
	return false
}

// Booking is an entry in the append-only booking ledger.  A CONFIRMED
// booking always corresponds to seats that were decremented from its
// train in the same unit of work.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – passenger who made the booking.
//	TrainID     – train the seats were taken from.
//	SeatsBooked – number of seats reserved (> 0).
//	Status      – booking status.
//	PNR         – unique 10 character reference code, immutable.
//	BookedAt    – commit timestamp, immutable.
type Booking struct {
	ID          uint64        `json:"id"`           // bookings.id
	UserID      uint64        `json:"user_id"`      // bookings.user_id
	TrainID     uint64        `json:"train_id"`     // bookings.train_id
	SeatsBooked uint32        `json:"seats_booked"` // bookings.seats_booked
	Status      BookingStatus `json:"status"`       // bookings.status
	PNR         string        `json:"pnr"`          // bookings.pnr
	BookedAt    time.Time     `json:"booking_time"` // bookings.booking_time
}

// BookingDetail is a ledger entry joined with its train, returned by the
// "my bookings" listing.
type BookingDetail struct {
	ID          uint64        `json:"id"`
	PNR         string        `json:"pnr"`
	Train       TrainSummary  `json:"train"`
	SeatsBooked uint32        `json:"seats_booked"`
	Status      BookingStatus `json:"status"`
	BookedAt    time.Time     `json:"booking_time"`
}
