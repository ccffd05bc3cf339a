package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// SQLStore is the MySQL-backed Store.  Train rows are serialised with
// SELECT ... FOR UPDATE so concurrent units of work on the same train run
// one at a time while different trains proceed in parallel.
type SQLStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewSQLStore returns a store over db.  lockTimeout bounds how long a unit
// of work waits for a train row lock; zero leaves the server default.
func NewSQLStore(db *sql.DB, lockTimeout time.Duration) *SQLStore {
	return &SQLStore{db: db, lockTimeout: lockTimeout}
}

// WithinUnitOfWork runs fn inside a single transaction.  The transaction is
// rolled back on any error returned by fn and on commit failure.
func (s *SQLStore) WithinUnitOfWork(ctx context.Context, fn func(UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if s.lockTimeout > 0 {
		// InnoDB only accepts whole seconds; the query context in LockTrain
		// enforces the exact bound.
		secs := int(math.Ceil(s.lockTimeout.Seconds()))
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)); err != nil {
			return fmt.Errorf("set lock wait timeout: %w", err)
		}
	}

	if err := fn(&sqlUnit{tx: tx, lockTimeout: s.lockTimeout, locked: make(map[uint64]struct{})}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	committed = true
	return nil
}

type sqlUnit struct {
	tx          *sql.Tx
	lockTimeout time.Duration
	locked      map[uint64]struct{}
}

const trainColumns = `id, train_number, name, source, destination, departure_time, arrival_time,
       total_seats, available_seats, created_at, updated_at`

func scanTrain(row interface{ Scan(...any) error }) (model.Train, error) {
	var t model.Train
	err := row.Scan(&t.ID, &t.TrainNumber, &t.Name, &t.Source, &t.Destination,
		&t.DepartureTime, &t.ArrivalTime, &t.TotalSeats, &t.AvailableSeats,
		&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (u *sqlUnit) LockTrain(ctx context.Context, id uint64) (model.Train, error) {
	lockCtx := ctx
	if u.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, u.lockTimeout)
		defer cancel()
	}
	t, err := scanTrain(u.tx.QueryRowContext(lockCtx,
		`SELECT `+trainColumns+` FROM trains WHERE id = ? FOR UPDATE`, id))
	switch {
	case err == nil:
		u.locked[id] = struct{}{}
		return t, nil
	case errors.Is(err, sql.ErrNoRows):
		return model.Train{}, ErrTrainNotFound
	case isLockContention(err):
		return model.Train{}, ErrLockTimeout
	case ctx.Err() == nil && lockCtx.Err() != nil:
		return model.Train{}, ErrLockTimeout
	default:
		return model.Train{}, err
	}
}

func (u *sqlUnit) SetAvailableSeats(ctx context.Context, trainID uint64, available uint32) error {
	if _, ok := u.locked[trainID]; !ok {
		return ErrNotLocked
	}
	_, err := u.tx.ExecContext(ctx,
		`UPDATE trains SET available_seats = ? WHERE id = ?`, available, trainID)
	if mysqlErrorNumber(err) == mysqlErrCheckViolated {
		return ErrSeatsOutOfRange
	}
	return err
}

func (u *sqlUnit) UpdateTrain(ctx context.Context, t model.Train) error {
	if _, ok := u.locked[t.ID]; !ok {
		return ErrNotLocked
	}
	_, err := u.tx.ExecContext(ctx,
		`UPDATE trains
            SET train_number = ?, name = ?, source = ?, destination = ?,
                departure_time = ?, arrival_time = ?, available_seats = ?
          WHERE id = ?`,
		t.TrainNumber, t.Name, t.Source, t.Destination,
		t.DepartureTime, t.ArrivalTime, t.AvailableSeats, t.ID)
	if isDuplicateEntry(err) {
		return ErrDuplicateTrainNumber
	}
	return err
}

func (u *sqlUnit) InsertBooking(ctx context.Context, b *model.Booking) error {
	res, err := u.tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, train_id, seats_booked, status, pnr, booking_time)
         VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.TrainID, b.SeatsBooked, string(b.Status), b.PNR, b.BookedAt)
	if err != nil {
		// pnr is the only unique key on bookings besides the
		// auto-increment primary key.
		if isDuplicateEntry(err) {
			return ErrDuplicateReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}
