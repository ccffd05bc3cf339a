package repository

import (
	"context"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// ListBookingsByUser returns the user's bookings newest first.
func (s *SQLStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.pnr, b.seats_booked, b.status, b.booking_time,
                t.id, t.train_number, t.name, t.source, t.destination, t.departure_time, t.arrival_time
           FROM bookings b
           JOIN trains t ON t.id = b.train_id
          WHERE b.user_id = ?
          ORDER BY b.booking_time DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d      model.BookingDetail
			status string
		)
		if err := rows.Scan(&d.ID, &d.PNR, &d.SeatsBooked, &status, &d.BookedAt,
			&d.Train.ID, &d.Train.TrainNumber, &d.Train.Name, &d.Train.Source,
			&d.Train.Destination, &d.Train.DepartureTime, &d.Train.ArrivalTime); err != nil {
			return nil, err
		}
		d.Status = model.BookingStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}
