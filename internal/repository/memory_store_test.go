package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

func seedTrain(t *testing.T, s *MemoryStore, number string, seats uint32) model.Train {
	t.Helper()
	dep := time.Now().Add(24 * time.Hour).UTC()
	tr := model.Train{TrainNumber: number, Name: "Express " + number, Source: "Pune", Destination: "Mumbai",
		DepartureTime: dep, ArrivalTime: dep.Add(3 * time.Hour), TotalSeats: seats, AvailableSeats: seats}
	require.NoError(t, s.CreateTrain(context.Background(), &tr))
	return tr
}

func TestMemoryStoreStagesUntilCommit(t *testing.T) {
	s := NewMemoryStore(time.Second)
	tr := seedTrain(t, s, "1", 10)
	ctx := context.Background()

	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		if _, err := u.LockTrain(ctx, tr.ID); err != nil {
			return err
		}
		require.NoError(t, u.SetAvailableSeats(ctx, tr.ID, 7))

		committed, err := s.GetTrain(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, uint32(10), committed.AvailableSeats)

		staged, err := u.LockTrain(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, uint32(7), staged.AvailableSeats)
		return u.InsertBooking(ctx, &model.Booking{UserID: 1, TrainID: tr.ID, SeatsBooked: 3, PNR: "AAAAAAAAAA"})
	})
	require.NoError(t, err)

	got, err := s.GetTrain(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got.AvailableSeats)
	assert.Len(t, s.Bookings(), 1)
}

func TestMemoryStoreRollbackDiscardsWritesAndReleasesPNR(t *testing.T) {
	s := NewMemoryStore(time.Second)
	tr := seedTrain(t, s, "1", 10)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		_, _ = u.LockTrain(ctx, tr.ID)
		_ = u.SetAvailableSeats(ctx, tr.ID, 0)
		_ = u.InsertBooking(ctx, &model.Booking{TrainID: tr.ID, PNR: "AAAAAAAAAA"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := s.GetTrain(ctx, tr.ID)
	assert.Equal(t, uint32(10), got.AvailableSeats)
	assert.Empty(t, s.Bookings())

	err = s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		return u.InsertBooking(ctx, &model.Booking{TrainID: tr.ID, PNR: "AAAAAAAAAA"})
	})
	require.NoError(t, err)
}

func TestMemoryStoreDuplicatePNR(t *testing.T) {
	s := NewMemoryStore(time.Second)
	ctx := context.Background()
	require.NoError(t, s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		return u.InsertBooking(ctx, &model.Booking{PNR: "AAAAAAAAAA"})
	}))
	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		return u.InsertBooking(ctx, &model.Booking{PNR: "AAAAAAAAAA"})
	})
	require.ErrorIs(t, err, ErrDuplicateReference)
}

func TestMemoryStoreLockTimeout(t *testing.T) {
	s := NewMemoryStore(50 * time.Millisecond)
	tr := seedTrain(t, s, "1", 10)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
			if _, err := u.LockTrain(ctx, tr.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	start := time.Now()
	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		_, err := u.LockTrain(ctx, tr.ID)
		return err
	})
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	close(release)
	require.NoError(t, <-done)

	// The lock is free again once the holder finishes.
	require.NoError(t, s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		_, err := u.LockTrain(ctx, tr.ID)
		return err
	}))
}

func TestMemoryStoreDifferentTrainsDoNotContend(t *testing.T) {
	s := NewMemoryStore(50 * time.Millisecond)
	a := seedTrain(t, s, "1", 10)
	b := seedTrain(t, s, "2", 10)
	ctx := context.Background()

	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		if _, err := u.LockTrain(ctx, a.ID); err != nil {
			return err
		}
		return s.WithinUnitOfWork(ctx, func(inner UnitOfWork) error {
			_, err := inner.LockTrain(ctx, b.ID)
			return err
		})
	})
	require.NoError(t, err)
}

func TestMemoryStoreCancelledContextDoesNotCommit(t *testing.T) {
	s := NewMemoryStore(time.Second)
	tr := seedTrain(t, s, "1", 10)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		_, _ = u.LockTrain(ctx, tr.ID)
		_ = u.SetAvailableSeats(ctx, tr.ID, 1)
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	got, _ := s.GetTrain(context.Background(), tr.ID)
	assert.Equal(t, uint32(10), got.AvailableSeats)
}

func TestMemoryStoreUnknownTrain(t *testing.T) {
	s := NewMemoryStore(time.Second)
	err := s.WithinUnitOfWork(context.Background(), func(u UnitOfWork) error {
		_, err := u.LockTrain(context.Background(), 99)
		return err
	})
	require.ErrorIs(t, err, ErrTrainNotFound)
}

func TestMemoryStoreSearchAndListing(t *testing.T) {
	s := NewMemoryStore(time.Second)
	ctx := context.Background()
	a := seedTrain(t, s, "1", 10)
	seedTrain(t, s, "2", 10)
	other := model.Train{TrainNumber: "3", Source: "Delhi", Destination: "Agra",
		DepartureTime: a.DepartureTime, ArrivalTime: a.ArrivalTime, TotalSeats: 1, AvailableSeats: 1}
	require.NoError(t, s.CreateTrain(ctx, &other))
	require.ErrorIs(t, s.CreateTrain(ctx, &model.Train{TrainNumber: "3"}), ErrDuplicateTrainNumber)

	res, total, err := s.SearchTrains(ctx, TrainSearchQuery{Source: "pun", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, res, 1)
	assert.Equal(t, a.ID, res[0].ID)

	first := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, uid := range []uint64{1, 2, 1} {
		b := model.Booking{UserID: uid, TrainID: a.ID, SeatsBooked: 1, Status: model.BookingConfirmed,
			PNR: string(rune('A'+i)) + "000000000", BookedAt: first.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.WithinUnitOfWork(ctx, func(u UnitOfWork) error { return u.InsertBooking(ctx, &b) }))
	}
	mine, err := s.ListBookingsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "C000000000", mine[0].PNR)
	assert.Equal(t, "A000000000", mine[1].PNR)
	assert.Equal(t, a.Name, mine[0].Train.Name)
}

func renameTrain(ctx context.Context, s *MemoryStore, id uint64, number string, inside func()) error {
	return s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		cur, err := u.LockTrain(ctx, id)
		if err != nil {
			return err
		}
		cur.TrainNumber = number
		if err := u.UpdateTrain(ctx, cur); err != nil {
			return err
		}
		if inside != nil {
			inside()
		}
		return nil
	})
}

func TestMemoryStoreOverlappingRenamesToSameNumber(t *testing.T) {
	s := NewMemoryStore(time.Second)
	a := seedTrain(t, s, "A", 5)
	b := seedTrain(t, s, "B", 5)
	ctx := context.Background()

	var second error
	first := renameTrain(ctx, s, a.ID, "X", func() {
		// While A's rename is still open, B tries to take the same number.
		second = renameTrain(ctx, s, b.ID, "X", nil)
	})
	require.NoError(t, first)
	assert.ErrorIs(t, second, ErrDuplicateTrainNumber)

	gotA, err := s.GetTrain(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.GetTrain(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", gotA.TrainNumber)
	assert.Equal(t, "B", gotB.TrainNumber)

	// The old number is free again.
	c := seedTrain(t, s, "A", 5)
	assert.NotZero(t, c.ID)
}

func TestMemoryStoreRolledBackRenameFreesNumber(t *testing.T) {
	s := NewMemoryStore(time.Second)
	a := seedTrain(t, s, "A", 5)
	b := seedTrain(t, s, "B", 5)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinUnitOfWork(ctx, func(u UnitOfWork) error {
		cur, err := u.LockTrain(ctx, a.ID)
		require.NoError(t, err)
		cur.TrainNumber = "Y"
		require.NoError(t, u.UpdateTrain(ctx, cur))
		cur.TrainNumber = "Z"
		require.NoError(t, u.UpdateTrain(ctx, cur))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, renameTrain(ctx, s, b.ID, "Y", nil))
	require.NoError(t, renameTrain(ctx, s, a.ID, "Z", nil))
	gotA, err := s.GetTrain(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Z", gotA.TrainNumber)
	assert.Equal(t, ErrDuplicateTrainNumber, s.CreateTrain(ctx, &model.Train{TrainNumber: "Y"}))
}
