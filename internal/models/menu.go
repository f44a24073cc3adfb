package models

import "time"

// MonthlyMenuItem is a meal offered during one calendar month
type MonthlyMenuItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsVegetarian bool      `json:"isVegetarian"`
	Price        int       `json:"price"` // minor currency unit
	Month        Date      `json:"month"` // first day of the month
	ImageURL     string    `json:"imageUrl"`
	IsAvailable  bool      `json:"isAvailable"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ServesOn reports whether the item can be chosen for a lunch on date
func (m *MonthlyMenuItem) ServesOn(date Date) bool {
	return m.IsAvailable && m.Month == date.MonthStart()
}
