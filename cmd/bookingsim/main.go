// Command bookingsim drives concurrent bookings against the in-process
// store and checks the inventory invariants afterwards: no train is
// oversold, seats add up, and every PNR is unique.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/service"
)

func main() {
	trains := flag.Int("trains", 3, "number of trains")
	seats := flag.Uint("seats", 100, "seats per train")
	requests := flag.Int("requests", 2000, "booking attempts")
	workers := flag.Int("workers", 64, "concurrent clients")
	maxSeats := flag.Int("max-seats", 6, "largest party size")
	lockTimeout := flag.Duration("lock-timeout", 2*time.Second, "per-train lock timeout")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "bookingsim", Format: "console"})
	ctx := context.Background()

	store := repository.NewMemoryStore(*lockTimeout)
	svc := service.NewBookingService(store, config.BookingConfig{LockTimeout: *lockTimeout, PNRMaxAttempts: 10}, logger.Nop())

	departs := time.Now().Add(24 * time.Hour).UTC()
	ids := make([]uint64, 0, *trains)
	for i := 0; i < *trains; i++ {
		t := model.Train{
			TrainNumber:    fmt.Sprintf("SIM%03d", i+1),
			Name:           "simulated",
			Source:         "Origin",
			Destination:    fmt.Sprintf("Stop %d", i+1),
			DepartureTime:  departs,
			ArrivalTime:    departs.Add(3 * time.Hour),
			TotalSeats:     uint32(*seats),
			AvailableSeats: uint32(*seats),
		}
		if err := store.CreateTrain(ctx, &t); err != nil {
			logg.Error(ctx, "create train", err)
			os.Exit(1)
		}
		ids = append(ids, t.ID)
	}

	var (
		mu       sync.Mutex
		outcomes = map[apperror.Code]int{}
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i := 0; i < *requests; i++ {
		trainID := ids[rand.IntN(len(ids))]
		party := 1 + rand.IntN(*maxSeats)
		user := uint64(1 + i%50)
		g.Go(func() error {
			_, err := svc.Book(gctx, user, trainID, party)
			code := apperror.Code("CONFIRMED")
			if err != nil {
				code = apperror.CodeOf(err)
			}
			mu.Lock()
			outcomes[code]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	summary := map[string]any{"requests": *requests, "elapsed_ms": elapsed.Milliseconds()}
	for code, n := range outcomes {
		summary[string(code)] = n
	}
	logg.Info(logg.WithFields(ctx, summary), "simulation finished")

	if problems := check(ctx, store, ids); len(problems) > 0 {
		for _, p := range problems {
			logg.Error(ctx, "invariant violated", fmt.Errorf("%s", p))
		}
		os.Exit(1)
	}
	logg.Info(ctx, "all invariants hold")
}

// check compares every train's remaining seats with the committed ledger.
func check(ctx context.Context, store *repository.MemoryStore, ids []uint64) []string {
	booked := map[uint64]uint32{}
	pnrs := map[string]bool{}
	var problems []string
	for _, b := range store.Bookings() {
		booked[b.TrainID] += b.SeatsBooked
		if pnrs[b.PNR] {
			problems = append(problems, "duplicate PNR "+b.PNR)
		}
		pnrs[b.PNR] = true
	}
	for _, id := range ids {
		t, err := store.GetTrain(ctx, id)
		if err != nil {
			problems = append(problems, fmt.Sprintf("train %d: %v", id, err))
			continue
		}
		if booked[id] > t.TotalSeats {
			problems = append(problems, fmt.Sprintf("train %d oversold: %d of %d", id, booked[id], t.TotalSeats))
		}
		if t.AvailableSeats+booked[id] != t.TotalSeats {
			problems = append(problems, fmt.Sprintf("train %d: available %d + booked %d != total %d",
				id, t.AvailableSeats, booked[id], t.TotalSeats))
		}
	}
	return problems
}
