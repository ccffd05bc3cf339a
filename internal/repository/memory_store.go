package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// MemoryStore is an in-process Store with the same locking contract as
// SQLStore: one exclusive lock per train, a bounded wait for it, and
// writes that only become visible on commit.  It backs the booking
// simulator and the concurrency tests.
type MemoryStore struct {
	mu       sync.Mutex
	trains   map[uint64]model.Train
	locks    map[uint64]chan struct{}
	bookings []model.Booking
	pnrs     map[string]struct{}
	numbers  map[string]uint64

	nextTrainID   uint64
	nextBookingID uint64

	lockTimeout time.Duration
	now         func() time.Time

	// BeforeInsert, when set, runs before every InsertBooking and its
	// error is returned in place of the insert.  Used for fault injection.
	BeforeInsert func(b *model.Booking) error
}

// NewMemoryStore returns an empty store.  lockTimeout bounds the wait for
// a train lock; zero waits until ctx is done.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		trains:      make(map[uint64]model.Train),
		locks:       make(map[uint64]chan struct{}),
		pnrs:        make(map[string]struct{}),
		numbers:     make(map[string]uint64),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// WithinUnitOfWork runs fn and applies its staged writes atomically if fn
// succeeds and ctx is still live.
func (s *MemoryStore) WithinUnitOfWork(ctx context.Context, fn func(UnitOfWork) error) error {
	u := &memUnit{
		store:   s,
		held:    make(map[uint64]chan struct{}),
		trains:  make(map[uint64]model.Train),
		renames: make(map[uint64]string),
	}
	committed := false
	defer func() {
		if !committed {
			u.rollback()
		}
		u.release()
	}()

	if err := fn(u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.commit()
	committed = true
	return nil
}

// CreateTrain inserts t and assigns its ID and timestamps.
func (s *MemoryStore) CreateTrain(_ context.Context, t *model.Train) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.numbers[t.TrainNumber]; taken {
		return ErrDuplicateTrainNumber
	}
	s.nextTrainID++
	now := s.now().UTC()
	t.ID = s.nextTrainID
	t.CreatedAt, t.UpdatedAt = now, now
	s.trains[t.ID] = *t
	s.numbers[t.TrainNumber] = t.ID
	return nil
}

// GetTrain returns the committed state of a train.
func (s *MemoryStore) GetTrain(_ context.Context, id uint64) (model.Train, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trains[id]
	if !ok {
		return model.Train{}, ErrTrainNotFound
	}
	return t, nil
}

// SearchTrains mirrors SQLStore.SearchTrains.
func (s *MemoryStore) SearchTrains(_ context.Context, q TrainSearchQuery) ([]model.Train, int64, error) {
	s.mu.Lock()
	matches := make([]model.Train, 0)
	for _, t := range s.trains {
		if matchesSearch(t, q) {
			matches = append(matches, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].DepartureTime.Equal(matches[j].DepartureTime) {
			return matches[i].DepartureTime.Before(matches[j].DepartureTime)
		}
		return matches[i].ID < matches[j].ID
	})
	total := int64(len(matches))
	if q.Offset >= len(matches) {
		return []model.Train{}, total, nil
	}
	end := len(matches)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matches[q.Offset:end], total, nil
}

func matchesSearch(t model.Train, q TrainSearchQuery) bool {
	if src := strings.ToLower(strings.TrimSpace(q.Source)); src != "" &&
		!strings.Contains(strings.ToLower(t.Source), src) {
		return false
	}
	if dst := strings.ToLower(strings.TrimSpace(q.Destination)); dst != "" &&
		!strings.Contains(strings.ToLower(t.Destination), dst) {
		return false
	}
	if q.Date != nil {
		start, end := q.DayBounds()
		if t.DepartureTime.Before(start) || !t.DepartureTime.Before(end) {
			return false
		}
	}
	return true
}

// ListBookingsByUser mirrors SQLStore.ListBookingsByUser.
func (s *MemoryStore) ListBookingsByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.BookingDetail{}
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		out = append(out, model.BookingDetail{
			ID:          b.ID,
			PNR:         b.PNR,
			Train:       s.trains[b.TrainID].Summary(),
			SeatsBooked: b.SeatsBooked,
			Status:      b.Status,
			BookedAt:    b.BookedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].BookedAt.Equal(out[j].BookedAt) {
			return out[i].BookedAt.After(out[j].BookedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Bookings returns a copy of the committed ledger in commit order.
func (s *MemoryStore) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Booking(nil), s.bookings...)
}

func (s *MemoryStore) lockFor(id uint64) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trains[id]; !ok {
		return nil, false
	}
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch, true
}

type memUnit struct {
	store    *MemoryStore
	held     map[uint64]chan struct{}
	trains   map[uint64]model.Train
	bookings []model.Booking
	reserved []string
	// renames holds the train numbers this unit claimed, by train.
	renames map[uint64]string
}

func (u *memUnit) LockTrain(ctx context.Context, id uint64) (model.Train, error) {
	ch, ok := u.store.lockFor(id)
	if !ok {
		return model.Train{}, ErrTrainNotFound
	}
	if _, already := u.held[id]; !already {
		var timeout <-chan time.Time
		if u.store.lockTimeout > 0 {
			timer := time.NewTimer(u.store.lockTimeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case ch <- struct{}{}:
			u.held[id] = ch
		case <-timeout:
			return model.Train{}, ErrLockTimeout
		case <-ctx.Done():
			return model.Train{}, ctx.Err()
		}
	}
	if staged, ok := u.trains[id]; ok {
		return staged, nil
	}
	return u.store.GetTrain(ctx, id)
}

func (u *memUnit) SetAvailableSeats(ctx context.Context, trainID uint64, available uint32) error {
	t, err := u.lockedTrain(ctx, trainID)
	if err != nil {
		return err
	}
	if available > t.TotalSeats {
		return ErrSeatsOutOfRange
	}
	t.AvailableSeats = available
	t.UpdatedAt = u.store.now().UTC()
	u.trains[trainID] = t
	return nil
}

func (u *memUnit) UpdateTrain(ctx context.Context, t model.Train) error {
	cur, err := u.lockedTrain(ctx, t.ID)
	if err != nil {
		return err
	}
	if err := u.claimNumber(t.ID, t.TrainNumber); err != nil {
		return err
	}
	t.TotalSeats = cur.TotalSeats
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = u.store.now().UTC()
	u.trains[t.ID] = t
	return nil
}

// claimNumber reserves number for train id until the unit ends, the way
// the unique index on train_number does inside a transaction.  A number
// claimed earlier by this unit for the same train is given back.
func (u *memUnit) claimNumber(id uint64, number string) error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, taken := s.numbers[number]
	if taken && owner != id {
		return ErrDuplicateTrainNumber
	}
	if prev, ok := u.renames[id]; ok && prev != number {
		delete(s.numbers, prev)
		delete(u.renames, id)
	}
	if !taken {
		s.numbers[number] = id
		u.renames[id] = number
	}
	return nil
}

func (u *memUnit) lockedTrain(ctx context.Context, id uint64) (model.Train, error) {
	if _, ok := u.held[id]; !ok {
		return model.Train{}, ErrNotLocked
	}
	if t, ok := u.trains[id]; ok {
		return t, nil
	}
	return u.store.GetTrain(ctx, id)
}

func (u *memUnit) InsertBooking(_ context.Context, b *model.Booking) error {
	if hook := u.store.BeforeInsert; hook != nil {
		if err := hook(b); err != nil {
			return err
		}
	}
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.pnrs[b.PNR]; dup {
		return ErrDuplicateReference
	}
	s.pnrs[b.PNR] = struct{}{}
	u.reserved = append(u.reserved, b.PNR)
	s.nextBookingID++
	b.ID = s.nextBookingID
	u.bookings = append(u.bookings, *b)
	return nil
}

func (u *memUnit) commit() {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range u.trains {
		if prev, ok := s.trains[id]; ok && prev.TrainNumber != t.TrainNumber {
			delete(s.numbers, prev.TrainNumber)
		}
		s.trains[id] = t
	}
	s.bookings = append(s.bookings, u.bookings...)
}

func (u *memUnit) rollback() {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pnr := range u.reserved {
		delete(s.pnrs, pnr)
	}
	for _, number := range u.renames {
		delete(s.numbers, number)
	}
}

func (u *memUnit) release() {
	for id, ch := range u.held {
		<-ch
		delete(u.held, id)
	}
}
