package models

import "time"

// Kid represents a child profile owned by one parent
type Kid struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Name           string    `json:"name"`
	Grade          string    `json:"grade"`
	School         string    `json:"school"`
	RollNumber     string    `json:"rollNumber"`
	Gender         string    `json:"gender,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsOwnedBy reports whether userID is the kid's parent
func (k *Kid) IsOwnedBy(userID int64) bool {
	return k != nil && k.UserID == userID
}
