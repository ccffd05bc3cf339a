package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// CreateTrain inserts t and fills in its ID and timestamps.
func (s *SQLStore) CreateTrain(ctx context.Context, t *model.Train) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trains (train_number, name, source, destination, departure_time, arrival_time,
                             total_seats, available_seats)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TrainNumber, t.Name, t.Source, t.Destination, t.DepartureTime, t.ArrivalTime,
		t.TotalSeats, t.AvailableSeats)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateTrainNumber
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := s.GetTrain(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = created
	return nil
}

// GetTrain returns the committed row of a train without locking it.
func (s *SQLStore) GetTrain(ctx context.Context, id uint64) (model.Train, error) {
	t, err := scanTrain(s.db.QueryRowContext(ctx,
		`SELECT `+trainColumns+` FROM trains WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Train{}, ErrTrainNotFound
	}
	return t, err
}

// SearchTrains returns one page of trains matching q ordered by departure
// time, together with the total number of matches.
func (s *SQLStore) SearchTrains(ctx context.Context, q TrainSearchQuery) ([]model.Train, int64, error) {
	where, args := buildTrainSearchWhere(q)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trains`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Train{}, 0, nil
	}

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trainColumns+` FROM trains`+where+` ORDER BY departure_time ASC, id ASC LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Train, 0, q.Limit)
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func buildTrainSearchWhere(q TrainSearchQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if src := strings.TrimSpace(q.Source); src != "" {
		conds = append(conds, "LOWER(source) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(src))+"%")
	}
	if dst := strings.TrimSpace(q.Destination); dst != "" {
		conds = append(conds, "LOWER(destination) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(dst))+"%")
	}
	if q.Date != nil {
		start, end := q.DayBounds()
		conds = append(conds, "departure_time >= ? AND departure_time < ?")
		args = append(args, start, end)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
