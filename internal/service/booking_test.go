package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
)

var (
	testBookingCfg = config.BookingConfig{LockTimeout: time.Second, PNRMaxAttempts: 10}
	trainNumbers   int64
)

func newTrain(t *testing.T, store repository.Store, seats uint32, departsIn time.Duration) model.Train {
	t.Helper()
	dep := time.Now().Add(departsIn).UTC()
	tr := model.Train{
		TrainNumber:    fmt.Sprintf("T%d", atomic.AddInt64(&trainNumbers, 1)),
		Name:           "Deccan Queen",
		Source:         "Pune",
		Destination:    "Mumbai",
		DepartureTime:  dep,
		ArrivalTime:    dep.Add(3 * time.Hour),
		TotalSeats:     seats,
		AvailableSeats: seats,
	}
	require.NoError(t, store.CreateTrain(context.Background(), &tr))
	return tr
}

func available(t *testing.T, store repository.Store, id uint64) uint32 {
	t.Helper()
	tr, err := store.GetTrain(context.Background(), id)
	require.NoError(t, err)
	return tr.AvailableSeats
}

// sequence returns a PNR generator that yields codes in order, then
// repeats the last one, and counts calls.
func sequence(calls *int32, codes ...string) func() (string, error) {
	return func() (string, error) {
		n := int(atomic.AddInt32(calls, 1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		return codes[n], nil
	}
}

func TestBookSucceeds(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, 24*time.Hour)
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	b, err := svc.Book(context.Background(), 7, tr.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, uint32(4), b.SeatsBooked)
	assert.Len(t, b.PNR, 10)
	assert.NotZero(t, b.ID)
	assert.False(t, b.BookedAt.IsZero())
	assert.Equal(t, uint32(6), available(t, store, tr.ID))
}

func TestBookConcurrentNeverOversells(t *testing.T) {
	store := repository.NewMemoryStore(5 * time.Second)
	tr := newTrain(t, store, 10, 24*time.Hour)
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	var (
		wg     sync.WaitGroup
		booked int64
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seats := i%3 + 1
			if _, err := svc.Book(context.Background(), uint64(i), tr.ID, seats); err == nil {
				atomic.AddInt64(&booked, int64(seats))
			} else {
				assert.True(t, apperror.Is(err, apperror.CodeInsufficientSeats), "unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, booked, int64(10))
	assert.Equal(t, uint32(10-booked), available(t, store, tr.ID))

	var ledger uint32
	for _, b := range store.Bookings() {
		ledger += b.SeatsBooked
	}
	assert.Equal(t, uint32(booked), ledger)
}

func TestBookSixAndSevenOnTenSeats(t *testing.T) {
	for round := 0; round < 20; round++ {
		store := repository.NewMemoryStore(5 * time.Second)
		tr := newTrain(t, store, 10, 24*time.Hour)
		svc := NewBookingService(store, testBookingCfg, logger.Nop())

		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make([]error, 2)
		requests := []int{6, 7}
		for i, seats := range requests {
			wg.Add(1)
			go func(i, seats int) {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Book(context.Background(), uint64(i+1), tr.ID, seats)
			}(i, seats)
		}
		close(start)
		wg.Wait()

		require.True(t, (errs[0] == nil) != (errs[1] == nil), "exactly one booking must win: %v", errs)
		winner, loser := 0, 1
		if errs[0] != nil {
			winner, loser = 1, 0
		}
		left := uint32(10 - requests[winner])
		assert.Equal(t, left, available(t, store, tr.ID))

		typed := apperror.As(errs[loser])
		require.NotNil(t, typed)
		assert.Equal(t, apperror.CodeInsufficientSeats, typed.Code())
		assert.Equal(t, left, typed.Details().(map[string]any)["available"])
	}
}

func TestBookDepartedTrain(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	past := newTrain(t, store, 10, -time.Minute)
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	_, err := svc.Book(context.Background(), 1, past.ID, 1)
	require.True(t, apperror.Is(err, apperror.CodeDeparted), "got %v", err)
	assert.Equal(t, uint32(10), available(t, store, past.ID))

	// Departing exactly now is already too late.
	future := newTrain(t, store, 10, time.Hour)
	atDeparture := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithClock(func() time.Time { return future.DepartureTime }))
	_, err = atDeparture.Book(context.Background(), 1, future.ID, 1)
	require.True(t, apperror.Is(err, apperror.CodeDeparted), "got %v", err)
}

func TestBookDepartureComparedAtFullPrecision(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	dep := time.Date(2031, 3, 1, 6, 0, 0, 123456789, time.UTC)
	tr := model.Train{TrainNumber: "NS1", Source: "Pune", Destination: "Mumbai",
		DepartureTime: dep, ArrivalTime: dep.Add(time.Hour), TotalSeats: 4, AvailableSeats: 4}
	require.NoError(t, store.CreateTrain(context.Background(), &tr))

	atDeparture := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithClock(func() time.Time { return dep }))
	_, err := atDeparture.Book(context.Background(), 1, tr.ID, 1)
	require.True(t, apperror.Is(err, apperror.CodeDeparted), "got %v", err)

	justBefore := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithClock(func() time.Time { return dep.Add(-time.Nanosecond) }))
	b, err := justBefore.Book(context.Background(), 1, tr.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, dep.Add(-time.Nanosecond).Truncate(time.Microsecond), b.BookedAt)
	assert.Equal(t, uint32(3), available(t, store, tr.ID))
}

func TestBookRejectsMalformedReference(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 5, time.Hour)
	var calls int32
	svc := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithPNRGenerator(sequence(&calls, "abc-123")))

	_, err := svc.Book(context.Background(), 1, tr.ID, 2)
	require.True(t, apperror.Is(err, apperror.CodeInternal), "got %v", err)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, uint32(5), available(t, store, tr.ID))
	assert.Empty(t, store.Bookings())
}

func TestBookRejectsNonPositiveSeats(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, time.Hour)
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	for _, seats := range []int{0, -3} {
		_, err := svc.Book(context.Background(), 1, tr.ID, seats)
		require.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
	}
	assert.Equal(t, uint32(10), available(t, store, tr.ID))
	assert.Empty(t, store.Bookings())
}

func TestBookUnknownTrain(t *testing.T) {
	svc := NewBookingService(repository.NewMemoryStore(time.Second), testBookingCfg, logger.Nop())
	_, err := svc.Book(context.Background(), 1, 404, 1)
	require.True(t, apperror.Is(err, apperror.CodeNotFound), "got %v", err)
}

func TestBookTenThousandUniquePNRs(t *testing.T) {
	const n = 10000
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, n, 24*time.Hour)
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		b, err := svc.Book(context.Background(), uint64(i%50), tr.ID, 1)
		require.NoError(t, err)
		_, dup := seen[b.PNR]
		require.False(t, dup, "duplicate pnr %s", b.PNR)
		seen[b.PNR] = struct{}{}
	}
	assert.Zero(t, available(t, store, tr.ID))
}

func TestBookRetriesOnlyOnReferenceCollision(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, time.Hour)

	var calls int32
	first := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithPNRGenerator(sequence(&calls, "AAAAAAAAAA")))
	_, err := first.Book(context.Background(), 1, tr.ID, 1)
	require.NoError(t, err)

	calls = 0
	svc := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithPNRGenerator(sequence(&calls, "AAAAAAAAAA", "AAAAAAAAAA", "BBBBBBBBBB")))
	b, err := svc.Book(context.Background(), 2, tr.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBBBB", b.PNR)
	assert.Equal(t, int32(3), calls)
	assert.Equal(t, uint32(7), available(t, store, tr.ID))
}

func TestBookReferenceExhaustionRollsBack(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, time.Hour)

	var calls int32
	seed := NewBookingService(store, testBookingCfg, logger.Nop(),
		WithPNRGenerator(sequence(&calls, "AAAAAAAAAA")))
	_, err := seed.Book(context.Background(), 1, tr.ID, 1)
	require.NoError(t, err)

	calls = 0
	svc := NewBookingService(store, config.BookingConfig{PNRMaxAttempts: 10}, logger.Nop(),
		WithPNRGenerator(sequence(&calls, "AAAAAAAAAA")))
	_, err = svc.Book(context.Background(), 2, tr.ID, 3)
	require.True(t, apperror.Is(err, apperror.CodeReferenceAllocation), "got %v", err)
	assert.Equal(t, int32(10), calls)
	assert.Equal(t, uint32(9), available(t, store, tr.ID))
	assert.Len(t, store.Bookings(), 1)
}

func TestBookOtherInsertFailuresAreNotRetried(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, time.Hour)
	var inserts int32
	diskFull := errors.New("disk full")
	store.BeforeInsert = func(*model.Booking) error {
		atomic.AddInt32(&inserts, 1)
		return diskFull
	}
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	_, err := svc.Book(context.Background(), 1, tr.ID, 2)
	require.ErrorIs(t, err, diskFull)
	assert.True(t, apperror.Is(err, apperror.CodeInternal))
	assert.Equal(t, int32(1), inserts)
	assert.Equal(t, uint32(10), available(t, store, tr.ID))
	assert.Empty(t, store.Bookings())
}

func TestBookContentionTimeout(t *testing.T) {
	store := repository.NewMemoryStore(50 * time.Millisecond)
	tr := newTrain(t, store, 10, time.Hour)
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinUnitOfWork(context.Background(), func(u repository.UnitOfWork) error {
			if _, err := u.LockTrain(context.Background(), tr.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := svc.Book(context.Background(), 1, tr.ID, 1)
	close(release)
	require.NoError(t, <-done)

	typed := apperror.As(err)
	require.NotNil(t, typed, "got %v", err)
	assert.Equal(t, apperror.CodeContentionTimeout, typed.Code())
	assert.True(t, typed.Retryable())
	assert.Equal(t, uint32(10), available(t, store, tr.ID))
}

func TestBookCancelledBeforeCommit(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	store.BeforeInsert = func(*model.Booking) error {
		cancel()
		return nil
	}
	svc := NewBookingService(store, testBookingCfg, logger.Nop())

	_, err := svc.Book(ctx, 1, tr.ID, 2)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(10), available(t, store, tr.ID))
	assert.Empty(t, store.Bookings())
}

func TestListForUserNewestFirst(t *testing.T) {
	store := repository.NewMemoryStore(time.Second)
	tr := newTrain(t, store, 10, 24*time.Hour)

	clock := time.Now().UTC()
	svc := NewBookingService(store, testBookingCfg, logger.Nop(), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	var mine []string
	for i, uid := range []uint64{1, 2, 1, 1} {
		b, err := svc.Book(context.Background(), uid, tr.ID, 1)
		require.NoError(t, err, "booking %d", i)
		if uid == 1 {
			mine = append(mine, b.PNR)
		}
	}

	out, err := svc.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{mine[2], mine[1], mine[0]}, []string{out[0].PNR, out[1].PNR, out[2].PNR})
	assert.Equal(t, tr.Name, out[0].Train.Name)
}
