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

// KidRepository handles database operations for kids
type KidRepository struct {
	db database.DBTX
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db database.DBTX) *KidRepository {
	return &KidRepository{db: db}
}

const kidColumns = `id, user_id, name, grade, school, roll_number, COALESCE(gender, ''), COALESCE(profile_picture, ''),
	created_at, updated_at`

func scanKid(row rowScanner) (*models.Kid, error) {
	kid := &models.Kid{}
	err := row.Scan(
		&kid.ID,
		&kid.UserID,
		&kid.Name,
		&kid.Grade,
		&kid.School,
		&kid.RollNumber,
		&kid.Gender,
		&kid.ProfilePicture,
		&kid.CreatedAt,
		&kid.UpdatedAt,
	)
	return kid, err
}

// CreateKid creates a new kid profile
func (r *KidRepository) CreateKid(ctx context.Context, kid *models.Kid) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO kids (user_id, name, grade, school, roll_number, gender, profile_picture, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		kid.UserID, kid.Name, kid.Grade, kid.School, kid.RollNumber,
		nullIfEmpty(kid.Gender), nullIfEmpty(kid.ProfilePicture), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create kid: %w", err)
	}

	kid.ID = id
	kid.CreatedAt = now
	kid.UpdatedAt = now
	return nil
}

// GetKidByID retrieves a kid by ID
func (r *KidRepository) GetKidByID(ctx context.Context, id int64) (*models.Kid, error) {
	kid, err := scanKid(r.db.QueryRowContext(ctx, "SELECT "+kidColumns+" FROM kids WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// ListKidsByUser retrieves all kids owned by a parent
func (r *KidRepository) ListKidsByUser(ctx context.Context, userID int64) ([]models.Kid, error) {
	return r.listKids(ctx, "SELECT "+kidColumns+" FROM kids WHERE user_id = ? ORDER BY created_at ASC, id ASC", userID)
}

// ListAllKids retrieves every kid ordered by ID
func (r *KidRepository) ListAllKids(ctx context.Context) ([]models.Kid, error) {
	return r.listKids(ctx, "SELECT "+kidColumns+" FROM kids ORDER BY id")
}

func (r *KidRepository) listKids(ctx context.Context, query string, args ...interface{}) ([]models.Kid, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	kids := []models.Kid{}
	for rows.Next() {
		kid, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, *kid)
	}
	return kids, rows.Err()
}

// UpdateKid updates a kid's profile. Returns false if the kid does not belong to kid.UserID.
func (r *KidRepository) UpdateKid(ctx context.Context, kid *models.Kid) (bool, error) {
	now := time.Now().UTC()
	query := `
		UPDATE kids
		SET name = ?, grade = ?, school = ?, roll_number = ?, gender = ?, profile_picture = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		kid.Name, kid.Grade, kid.School, kid.RollNumber,
		nullIfEmpty(kid.Gender), nullIfEmpty(kid.ProfilePicture), now,
		kid.ID, kid.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update kid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	kid.UpdatedAt = now
	return affected > 0, nil
}

// DeleteKid deletes a kid owned by userID along with its selections
func (r *KidRepository) DeleteKid(ctx context.Context, id, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM kids WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete kid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}
