package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) workDayColumns() string {
	return "id, user_id, client_id, " + s.dialect.dateText("date")
}

func scanWorkDay(sc interface{ Scan(...any) error }) (*WorkDay, error) {
	d := &WorkDay{}
	var clientID sql.NullInt64
	if err := sc.Scan(&d.ID, &d.UserID, &clientID, &d.Date); err != nil {
		return nil, err
	}
	d.ClientID = clientID.Int64
	return d, nil
}

func (s *Store) GetWorkDay(ctx context.Context, userID, clientID int64, date string) (*WorkDay, error) {
	row := s.queryRow(ctx,
		`SELECT `+s.workDayColumns()+` FROM work_days WHERE user_id = ? AND client_id = ? AND date = ?`,
		userID, clientID, date,
	)
	d, err := scanWorkDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get work day %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get work day %s: %w", date, err)
	}
	return d, nil
}

// EnsureWorkDay returns the work day for (user, client, date), creating it
// if needed. A concurrent insert of the same day is resolved by reading
// the winner's row.
func (s *Store) EnsureWorkDay(ctx context.Context, userID, clientID int64, date string) (*WorkDay, bool, error) {
	d, err := s.GetWorkDay(ctx, userID, clientID, date)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	id, err := s.insert(ctx, `INSERT INTO work_days (user_id, client_id, date) VALUES (?, ?, ?)`, userID, clientID, date)
	if err != nil {
		if s.dialect.duplicateKey(err) {
			d, err := s.GetWorkDay(ctx, userID, clientID, date)
			return d, false, err
		}
		return nil, false, fmt.Errorf("insert work day %s: %w", date, err)
	}
	return &WorkDay{ID: id, UserID: userID, ClientID: clientID, Date: date}, true, nil
}

// ListWorkDays returns the days of a user and client with from <= date < to.
func (s *Store) ListWorkDays(ctx context.Context, userID, clientID int64, from, to string) ([]WorkDay, error) {
	rows, err := s.query(ctx,
		`SELECT `+s.workDayColumns()+` FROM work_days
		 WHERE user_id = ? AND client_id = ? AND date >= ? AND date < ?
		 ORDER BY date`,
		userID, clientID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list work days: %w", err)
	}
	defer rows.Close()

	var days []WorkDay
	for rows.Next() {
		d, err := scanWorkDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, *d)
	}
	return days, rows.Err()
}
