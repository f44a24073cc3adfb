package models

import "time"

// LunchSelection binds one kid to one menu item for one delivery date
type LunchSelection struct {
	ID         int64     `json:"id"`
	KidID      int64     `json:"kidId"`
	MenuItemID int64     `json:"menuItemId"`
	Date       Date      `json:"date"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// LunchSelectionWithItem is a selection joined with the menu item it points at
type LunchSelectionWithItem struct {
	LunchSelection
	MenuItem MonthlyMenuItem `json:"menuItem"`
}

// SelectionHistory records one change of a selection's menu item
type SelectionHistory struct {
	ID            int64     `json:"id"`
	SelectionID   int64     `json:"selectionId"`
	OldMenuItemID *int64    `json:"oldMenuItemId"`
	NewMenuItemID int64     `json:"newMenuItemId"`
	ChangedAt     time.Time `json:"changedAt"`
	ChangedBy     int64     `json:"changedBy"`
}
