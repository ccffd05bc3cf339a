package model

import "time"

// Train is the seat inventory for one scheduled run.  It is the unit of
// contention for bookings: AvailableSeats is only decremented by the
// booking commit path, which holds an exclusive lock on the row while it
// checks and writes the count.
//
// Fields:
//
//	ID             – primary key identifier.
//	TrainNumber    – unique public train number (e.g. 12301).
//	Name           – display name of the service.
//	Source         – departure station.
//	Destination    – arrival station.
//	DepartureTime  – scheduled departure (UTC).
//	ArrivalTime    – scheduled arrival (UTC), strictly after DepartureTime.
//	TotalSeats     – seat capacity; positive and immutable after creation.
//	AvailableSeats – seats still bookable, 0 ≤ AvailableSeats ≤ TotalSeats.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Train struct {
	ID             uint64    `json:"id"`              // trains.id
	TrainNumber    string    `json:"train_number"`    // trains.train_number
	Name           string    `json:"name"`            // trains.name
	Source         string    `json:"source"`          // trains.source
	Destination    string    `json:"destination"`     // trains.destination
	DepartureTime  time.Time `json:"departure_time"`  // trains.departure_time
	ArrivalTime    time.Time `json:"arrival_time"`    // trains.arrival_time
	TotalSeats     uint32    `json:"total_seats"`     // trains.total_seats
	AvailableSeats uint32    `json:"available_seats"` // trains.available_seats
	CreatedAt      time.Time `json:"created_at"`      // trains.created_at
	UpdatedAt      time.Time `json:"updated_at"`      // trains.updated_at
}

// HasDeparted reports whether the train is no longer bookable at now.
// A train departing exactly at now counts as departed.
func (t Train) HasDeparted(now time.Time) bool {
	return !t.DepartureTime.After(now)
}

// TrainSummary is the compact train view nested inside booking listings.
type TrainSummary struct {
	ID            uint64    `json:"id"`
	TrainNumber   string    `json:"train_number"`
	Name          string    `json:"name"`
	Source        string    `json:"source"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

// Summary projects the train onto its listing summary.
func (t Train) Summary() TrainSummary {
	return TrainSummary{
		ID:            t.ID,
		TrainNumber:   t.TrainNumber,
		Name:          t.Name,
		Source:        t.Source,
		Destination:   t.Destination,
		DepartureTime: t.DepartureTime,
		ArrivalTime:   t.ArrivalTime,
	}
}
