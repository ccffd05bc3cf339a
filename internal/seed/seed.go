// Package seed loads demonstration data: a fixed set of trains and a
// batch of synthetic search logs for the route analytics.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

type sampleTrain struct {
	number, name, source, destination string
	seats                             uint32
}

var sampleTrains = []sampleTrain{
	{"12301", "Rajdhani Express", "New Delhi", "Mumbai Central", 500},
	{"12302", "Duronto Express", "Mumbai Central", "New Delhi", 450},
	{"12657", "Chennai Mail", "Bangalore", "Chennai", 600},
	{"12839", "Howrah Mail", "Chennai", "Howrah", 550},
	{"12951", "Mumbai Rajdhani", "New Delhi", "Mumbai Central", 480},
	{"12259", "Sealdah Duronto", "Kolkata", "New Delhi", 400},
}

// sampleSearches repeats popular routes so the ranking has a clear leader.
// The last entry names no route and only counts toward the total.
var sampleSearches = []map[string]string{
	{"source": "New Delhi", "destination": "Mumbai Central"},
	{"source": "New Delhi", "destination": "Mumbai Central"},
	{"source": "New Delhi", "destination": "Mumbai Central"},
	{"source": "Bangalore", "destination": "Chennai"},
	{"source": "Bangalore", "destination": "Chennai"},
	{"source": "Kolkata", "destination": "New Delhi"},
	{"source": "Chennai", "destination": "Howrah"},
	{"source": "Mumbai Central", "destination": "New Delhi"},
	{"source": "New Delhi", "destination": "Mumbai Central", "date": "2026-03-15"},
	{"date": "2026-03-20"},
}

// TrainCreator is the part of service.TrainService the seeder needs.
type TrainCreator interface {
	Create(ctx context.Context, in service.TrainInput) (model.Train, error)
}

// SearchLogWriter stores one search log; analytics writers satisfy it.
type SearchLogWriter interface {
	Write(ctx context.Context, entry model.SearchLog) error
}

// Trains creates the sample trains departing on consecutive days after
// now.  Trains whose number already exists are counted, not recreated.
func Trains(ctx context.Context, trains TrainCreator, now time.Time) (created, existing int, err error) {
	for i, st := range sampleTrains {
		day := now.UTC().Add(time.Duration(i+1) * 24 * time.Hour)
		_, err := trains.Create(ctx, service.TrainInput{
			TrainNumber:   st.number,
			Name:          st.name,
			Source:        st.source,
			Destination:   st.destination,
			DepartureTime: day.Add(6 * time.Hour),
			ArrivalTime:   day.Add(22 * time.Hour),
			TotalSeats:    st.seats,
		})
		switch {
		case err == nil:
			created++
		case apperror.Is(err, apperror.CodeConflict):
			existing++
		default:
			return created, existing, fmt.Errorf("seed train %s: %w", st.number, err)
		}
	}
	return created, existing, nil
}

// SearchLogs writes one synthetic log per sample search, stamped within
// the two hours before now.
func SearchLogs(ctx context.Context, w SearchLogWriter, now time.Time, rng *rand.Rand) (int, error) {
	users := []uint64{0, 0, 1, 2}
	for i, params := range sampleSearches {
		entry := model.SearchLog{
			Endpoint:  "/v1/trains/search",
			Params:    params,
			ElapsedMS: 5 + rng.Float64()*25,
			Timestamp: now.UTC().Add(-time.Duration(1+rng.IntN(120)) * time.Minute),
		}
		if uid := users[rng.IntN(len(users))]; uid != 0 {
			entry.UserID = &uid
		}
		if err := w.Write(ctx, entry); err != nil {
			return i, fmt.Errorf("seed search log: %w", err)
		}
	}
	return len(sampleSearches), nil
}
