package service

import (
	"context"
	"strings"

	"schoollunch/internal/models"
	"schoollunch/internal/repository"
	"schoollunch/internal/validation"
)

// MenuService answers menu queries and lets admins manage the catalog
type MenuService struct {
	store repository.MenuStore
}

// NewMenuService creates a new menu service
func NewMenuService(store repository.MenuStore) *MenuService {
	return &MenuService{store: store}
}

// MenuItemInput is the payload for creating a menu item
type MenuItemInput struct {
	Name         string      `json:"name" validate:"required,max=200"`
	Description  string      `json:"description" validate:"required,max=2000"`
	IsVegetarian bool        `json:"isVegetarian"`
	Price        int         `json:"price" validate:"gte=0"`
	Month        models.Date `json:"month" validate:"required"`
	ImageURL     string      `json:"imageUrl" validate:"omitempty,url"`
	IsAvailable  *bool       `json:"isAvailable"`
}

// MenuItemPatch is the payload for a partial menu item update; nil fields are left alone
type MenuItemPatch struct {
	Name         *string      `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string      `json:"description" validate:"omitempty,min=1,max=2000"`
	IsVegetarian *bool        `json:"isVegetarian"`
	Price        *int         `json:"price" validate:"omitempty,gte=0"`
	Month        *models.Date `json:"month"`
	ImageURL     *string      `json:"imageUrl" validate:"omitempty,url"`
	IsAvailable  *bool        `json:"isAvailable"`
}

// GetMenuItems returns the available items of a month ordered by name.
// An empty slice means no menu has been published for that month.
func (s *MenuService) GetMenuItems(ctx context.Context, year, month int) ([]models.MonthlyMenuItem, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	first, _ := monthRange(year, month)
	items, err := s.store.ListMenuItemsForMonth(ctx, first, true)
	if err != nil {
		return nil, storeErr("failed to get menu items", err)
	}
	return items, nil
}

// SplitByDiet partitions items into vegetarian and non-vegetarian, keeping order
func SplitByDiet(items []models.MonthlyMenuItem) (veg, nonVeg []models.MonthlyMenuItem) {
	veg = []models.MonthlyMenuItem{}
	nonVeg = []models.MonthlyMenuItem{}
	for _, item := range items {
		if item.IsVegetarian {
			veg = append(veg, item)
		} else {
			nonVeg = append(nonVeg, item)
		}
	}
	return veg, nonVeg
}

// ListAllMenuItems returns the whole catalog including unavailable items
func (s *MenuService) ListAllMenuItems(ctx context.Context) ([]models.MonthlyMenuItem, error) {
	items, err := s.store.ListAllMenuItems(ctx)
	if err != nil {
		return nil, storeErr("failed to list menu items", err)
	}
	return items, nil
}

// CreateMenuItem adds an item to the catalog. The month is normalised to its first day.
func (s *MenuService) CreateMenuItem(ctx context.Context, in MenuItemInput) (*models.MonthlyMenuItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}

	item := &models.MonthlyMenuItem{
		Name:         in.Name,
		Description:  in.Description,
		IsVegetarian: in.IsVegetarian,
		Price:        in.Price,
		Month:        in.Month.MonthStart(),
		ImageURL:     in.ImageURL,
		IsAvailable:  true,
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}

	if err := s.store.CreateMenuItem(ctx, item); err != nil {
		return nil, storeErr("failed to create menu item", err)
	}
	return item, nil
}

// UpdateMenuItem applies a partial update to a catalog item
func (s *MenuService) UpdateMenuItem(ctx context.Context, id int64, patch MenuItemPatch) (*models.MonthlyMenuItem, error) {
	if err := invalidFields(validation.Struct(patch)); err != nil {
		return nil, err
	}

	item, err := s.store.GetMenuItemByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to get menu item", err)
	}
	if item == nil {
		return nil, ErrMenuItemNotFound
	}

	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsVegetarian != nil {
		item.IsVegetarian = *patch.IsVegetarian
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Month != nil {
		item.Month = patch.Month.MonthStart()
	}
	if patch.ImageURL != nil {
		item.ImageURL = *patch.ImageURL
	}
	if patch.IsAvailable != nil {
		item.IsAvailable = *patch.IsAvailable
	}

	updated, err := s.store.UpdateMenuItem(ctx, item)
	if err != nil {
		return nil, storeErr("failed to update menu item", err)
	}
	if !updated {
		return nil, ErrMenuItemNotFound
	}
	return item, nil
}
