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

// SelectionRepository handles database operations for lunch selections and their history
type SelectionRepository struct {
	db database.DBTX
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(db database.DBTX) *SelectionRepository {
	return &SelectionRepository{db: db}
}

const selectionColumns = `id, kid_id, menu_item_id, date, created_at, modified_at`

func scanSelection(row rowScanner) (*models.LunchSelection, error) {
	s := &models.LunchSelection{}
	err := row.Scan(&s.ID, &s.KidID, &s.MenuItemID, &s.Date, &s.CreatedAt, &s.ModifiedAt)
	return s, err
}

// InsertSelection creates the selection for (KidID, Date). It returns false
// without writing when that pair already has a selection.
func (r *SelectionRepository) InsertSelection(ctx context.Context, selection *models.LunchSelection) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(`
		INSERT INTO lunch_selections (kid_id, menu_item_id, date, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	id, err := r.db.ExecReturningID(ctx, query,
		selection.KidID, selection.MenuItemID, selection.Date,
		selection.CreatedAt.UTC(), selection.ModifiedAt.UTC(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create lunch selection: %w", err)
	}
	selection.ID = id
	return true, nil
}

// GetSelectionByID retrieves a selection by ID
func (r *SelectionRepository) GetSelectionByID(ctx context.Context, id int64) (*models.LunchSelection, error) {
	s, err := scanSelection(r.db.QueryRowContext(ctx, "SELECT "+selectionColumns+" FROM lunch_selections WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lunch selection: %w", err)
	}
	return s, nil
}

// GetSelectionByKidAndDate retrieves the selection of a kid for one date
func (r *SelectionRepository) GetSelectionByKidAndDate(ctx context.Context, kidID int64, date models.Date) (*models.LunchSelection, error) {
	query := "SELECT " + selectionColumns + " FROM lunch_selections WHERE kid_id = ? AND date = ?"
	s, err := scanSelection(r.db.QueryRowContext(ctx, query, kidID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lunch selection: %w", err)
	}
	return s, nil
}

// UpdateSelectionMenuItem swaps the menu item of a selection only if it still
// points at oldMenuItemID and its date is not before notBefore. It returns
// false when either condition no longer holds.
func (r *SelectionRepository) UpdateSelectionMenuItem(ctx context.Context, id, oldMenuItemID, newMenuItemID int64, notBefore models.Date, modifiedAt time.Time) (bool, error) {
	query := `
		UPDATE lunch_selections
		SET menu_item_id = ?, modified_at = ?
		WHERE id = ? AND menu_item_id = ? AND date >= ?
	`
	result, err := r.db.ExecContext(ctx, query, newMenuItemID, modifiedAt.UTC(), id, oldMenuItemID, notBefore)
	if err != nil {
		return false, fmt.Errorf("failed to update lunch selection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return affected == 1, nil
}

// DeleteSelection removes a kid's selection if its date is not before notBefore
func (r *SelectionRepository) DeleteSelection(ctx context.Context, id, kidID int64, notBefore models.Date) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM lunch_selections WHERE id = ? AND kid_id = ? AND date >= ?", id, kidID, notBefore)
	if err != nil {
		return false, fmt.Errorf("failed to delete lunch selection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// ListSelectionsForKid retrieves a kid's selections with from <= date <= to,
// each joined with its menu item
func (r *SelectionRepository) ListSelectionsForKid(ctx context.Context, kidID int64, from, to models.Date) ([]models.LunchSelectionWithItem, error) {
	query := `
		SELECT s.id, s.kid_id, s.menu_item_id, s.date, s.created_at, s.modified_at,
			m.id, m.name, m.description, m.is_vegetarian, m.price, m.month, m.image_url, m.is_available, m.created_at, m.updated_at
		FROM lunch_selections s
		JOIN monthly_menu_items m ON m.id = s.menu_item_id
		WHERE s.kid_id = ? AND s.date >= ? AND s.date <= ?
		ORDER BY s.date ASC
	`
	rows, err := r.db.QueryContext(ctx, query, kidID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query lunch selections: %w", err)
	}
	defer rows.Close()

	selections := []models.LunchSelectionWithItem{}
	for rows.Next() {
		var s models.LunchSelectionWithItem
		m := &s.MenuItem
		if err := rows.Scan(
			&s.ID, &s.KidID, &s.MenuItemID, &s.Date, &s.CreatedAt, &s.ModifiedAt,
			&m.ID, &m.Name, &m.Description, &m.IsVegetarian, &m.Price, &m.Month, &m.ImageURL, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lunch selection: %w", err)
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}

// ListAllSelections retrieves every selection ordered by ID
func (r *SelectionRepository) ListAllSelections(ctx context.Context) ([]models.LunchSelection, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+selectionColumns+" FROM lunch_selections ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query lunch selections: %w", err)
	}
	defer rows.Close()

	var selections []models.LunchSelection
	for rows.Next() {
		s, err := scanSelection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lunch selection: %w", err)
		}
		selections = append(selections, *s)
	}
	return selections, rows.Err()
}

// AppendSelectionHistory records one menu item change
func (r *SelectionRepository) AppendSelectionHistory(ctx context.Context, entry *models.SelectionHistory) error {
	query := `
		INSERT INTO selection_history (selection_id, old_menu_item_id, new_menu_item_id, changed_at, changed_by)
		VALUES (?, ?, ?, ?, ?)
	`
	var old sql.NullInt64
	if entry.OldMenuItemID != nil {
		old = sql.NullInt64{Int64: *entry.OldMenuItemID, Valid: true}
	}
	id, err := r.db.ExecReturningID(ctx, query,
		entry.SelectionID, old, entry.NewMenuItemID, entry.ChangedAt.UTC(), entry.ChangedBy)
	if err != nil {
		return fmt.Errorf("failed to append selection history: %w", err)
	}
	entry.ID = id
	return nil
}

// ListSelectionHistory retrieves the changes of a selection, newest first
func (r *SelectionRepository) ListSelectionHistory(ctx context.Context, selectionID int64) ([]models.SelectionHistory, error) {
	return r.listHistory(ctx, `
		SELECT id, selection_id, old_menu_item_id, new_menu_item_id, changed_at, changed_by
		FROM selection_history
		WHERE selection_id = ?
		ORDER BY changed_at DESC, id DESC
	`, selectionID)
}

// ListAllSelectionHistory retrieves the whole audit trail ordered by ID
func (r *SelectionRepository) ListAllSelectionHistory(ctx context.Context) ([]models.SelectionHistory, error) {
	return r.listHistory(ctx, `
		SELECT id, selection_id, old_menu_item_id, new_menu_item_id, changed_at, changed_by
		FROM selection_history
		ORDER BY id
	`)
}

func (r *SelectionRepository) listHistory(ctx context.Context, query string, args ...interface{}) ([]models.SelectionHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query selection history: %w", err)
	}
	defer rows.Close()

	history := []models.SelectionHistory{}
	for rows.Next() {
		var h models.SelectionHistory
		var old sql.NullInt64
		if err := rows.Scan(&h.ID, &h.SelectionID, &old, &h.NewMenuItemID, &h.ChangedAt, &h.ChangedBy); err != nil {
			return nil, fmt.Errorf("failed to scan selection history: %w", err)
		}
		if old.Valid {
			h.OldMenuItemID = &old.Int64
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
