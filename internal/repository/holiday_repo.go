package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"schoollunch/internal/database"
	"schoollunch/internal/models"
)

// HolidayRepository handles database operations for holidays
type HolidayRepository struct {
	db database.DBTX
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db database.DBTX) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// CreateHoliday inserts a holiday. It returns false when the date is already a holiday.
func (r *HolidayRepository) CreateHoliday(ctx context.Context, holiday *models.Holiday) (bool, error) {
	now := time.Now().UTC()
	query := r.db.GetDialect().InsertIgnore("INSERT INTO holidays (date, description, created_at) VALUES (?, ?, ?)")
	id, err := r.db.ExecReturningID(ctx, query, holiday.Date, holiday.Description, now)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create holiday: %w", err)
	}

	holiday.ID = id
	holiday.CreatedAt = now
	return true, nil
}

// ListHolidaysBetween retrieves holidays with from <= date <= to, in date order
func (r *HolidayRepository) ListHolidaysBetween(ctx context.Context, from, to models.Date) ([]models.Holiday, error) {
	query := `
		SELECT id, date, description, created_at
		FROM holidays
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`
	return r.listHolidays(ctx, query, from, to)
}

// ListAllHolidays retrieves every holiday in date order
func (r *HolidayRepository) ListAllHolidays(ctx context.Context) ([]models.Holiday, error) {
	return r.listHolidays(ctx, "SELECT id, date, description, created_at FROM holidays ORDER BY date ASC")
}

func (r *HolidayRepository) listHolidays(ctx context.Context, query string, args ...interface{}) ([]models.Holiday, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	holidays := []models.Holiday{}
	for rows.Next() {
		var h models.Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Description, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// DeleteHoliday removes a holiday by ID
func (r *HolidayRepository) DeleteHoliday(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete holiday: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}
