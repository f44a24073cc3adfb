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

// MenuRepository handles database operations for monthly menu items
type MenuRepository struct {
	db database.DBTX
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db database.DBTX) *MenuRepository {
	return &MenuRepository{db: db}
}

const menuColumns = `id, name, description, is_vegetarian, price, month, image_url, is_available, created_at, updated_at`

func scanMenuItem(row rowScanner) (*models.MonthlyMenuItem, error) {
	item := &models.MonthlyMenuItem{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.IsVegetarian,
		&item.Price,
		&item.Month,
		&item.ImageURL,
		&item.IsAvailable,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// CreateMenuItem inserts a menu item and fills in its ID
func (r *MenuRepository) CreateMenuItem(ctx context.Context, item *models.MonthlyMenuItem) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO monthly_menu_items (name, description, is_vegetarian, price, month, image_url, is_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		item.Name, item.Description, item.IsVegetarian, item.Price, item.Month,
		item.ImageURL, item.IsAvailable, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}

	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// GetMenuItemByID retrieves a menu item by ID
func (r *MenuRepository) GetMenuItemByID(ctx context.Context, id int64) (*models.MonthlyMenuItem, error) {
	item, err := scanMenuItem(r.db.QueryRowContext(ctx, "SELECT "+menuColumns+" FROM monthly_menu_items WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}

// UpdateMenuItem overwrites every editable field of a menu item
func (r *MenuRepository) UpdateMenuItem(ctx context.Context, item *models.MonthlyMenuItem) (bool, error) {
	now := time.Now().UTC()
	query := `
		UPDATE monthly_menu_items
		SET name = ?, description = ?, is_vegetarian = ?, price = ?, month = ?, image_url = ?, is_available = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		item.Name, item.Description, item.IsVegetarian, item.Price, item.Month,
		item.ImageURL, item.IsAvailable, now, item.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update menu item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	item.UpdatedAt = now
	return affected > 0, nil
}

// ListMenuItemsForMonth retrieves the items of one month ordered by name
func (r *MenuRepository) ListMenuItemsForMonth(ctx context.Context, month models.Date, availableOnly bool) ([]models.MonthlyMenuItem, error) {
	query := "SELECT " + menuColumns + " FROM monthly_menu_items WHERE month = ?"
	args := []interface{}{month}
	if availableOnly {
		query += " AND is_available = ?"
		args = append(args, true)
	}
	query += " ORDER BY name ASC, id ASC"
	return r.listMenuItems(ctx, query, args...)
}

// ListAllMenuItems retrieves the whole catalog, newest month first
func (r *MenuRepository) ListAllMenuItems(ctx context.Context) ([]models.MonthlyMenuItem, error) {
	return r.listMenuItems(ctx, "SELECT "+menuColumns+" FROM monthly_menu_items ORDER BY month DESC, name ASC, id ASC")
}

func (r *MenuRepository) listMenuItems(ctx context.Context, query string, args ...interface{}) ([]models.MonthlyMenuItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MonthlyMenuItem{}
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
