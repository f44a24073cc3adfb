package models

import "time"

// Holiday is a date on which no lunches are served
type Holiday struct {
	ID          int64     `json:"id"`
	Date        Date      `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
