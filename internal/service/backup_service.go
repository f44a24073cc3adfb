package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/models"
)

// BackupVersion identifies the export layout
const BackupVersion = "1.0"

// BackupSource lists every row of every exported table
type BackupSource interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListAllKids(ctx context.Context) ([]models.Kid, error)
	ListAllMenuItems(ctx context.Context) ([]models.MonthlyMenuItem, error)
	ListAllHolidays(ctx context.Context) ([]models.Holiday, error)
	ListAllSelections(ctx context.Context) ([]models.LunchSelection, error)
	ListAllSelectionHistory(ctx context.Context) ([]models.SelectionHistory, error)
}

// BackupData represents the complete database backup structure
type BackupData struct {
	Version          string                    `json:"version"`
	ExportedAt       time.Time                 `json:"exported_at"`
	DatabaseType     string                    `json:"database_type"`
	Users            []UserBackup              `json:"users"`
	Kids             []models.Kid              `json:"kids"`
	MenuItems        []models.MonthlyMenuItem  `json:"menu_items"`
	Holidays         []models.Holiday          `json:"holidays"`
	Selections       []models.LunchSelection   `json:"lunch_selections"`
	SelectionHistory []models.SelectionHistory `json:"selection_history"`
}

// UserBackup represents a user record for backup, including credentials
type UserBackup struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"password_hash"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Gender         string    `json:"gender,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	IsAdmin        bool      `json:"is_admin"`
	OAuthProvider  string    `json:"oauth_provider,omitempty"`
	OAuthSubject   string    `json:"oauth_subject,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BackupService exports the database as a single JSON document
type BackupService struct {
	source       BackupSource
	databaseType string
	clock        clockwork.Clock
}

// NewBackupService creates a new backup service
func NewBackupService(source BackupSource, databaseType string, clock clockwork.Clock) *BackupService {
	return &BackupService{source: source, databaseType: databaseType, clock: clock}
}

// Collect reads every exported table into memory
func (s *BackupService) Collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   s.clock.Now().UTC(),
		DatabaseType: s.databaseType,
	}

	users, err := s.source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	backup.Users = make([]UserBackup, 0, len(users))
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:             u.ID,
			Username:       u.Username,
			PasswordHash:   u.PasswordHash,
			Name:           u.Name,
			Email:          u.Email,
			Gender:         u.Gender,
			ProfilePicture: u.ProfilePicture,
			IsAdmin:        u.IsAdmin,
			OAuthProvider:  u.OAuthProvider,
			OAuthSubject:   u.OAuthSubject,
			CreatedAt:      u.CreatedAt,
			UpdatedAt:      u.UpdatedAt,
		})
	}

	if backup.Kids, err = s.source.ListAllKids(ctx); err != nil {
		return nil, fmt.Errorf("failed to export kids: %w", err)
	}
	if backup.MenuItems, err = s.source.ListAllMenuItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to export menu items: %w", err)
	}
	if backup.Holidays, err = s.source.ListAllHolidays(ctx); err != nil {
		return nil, fmt.Errorf("failed to export holidays: %w", err)
	}
	if backup.Selections, err = s.source.ListAllSelections(ctx); err != nil {
		return nil, fmt.Errorf("failed to export lunch selections: %w", err)
	}
	if backup.SelectionHistory, err = s.source.ListAllSelectionHistory(ctx); err != nil {
		return nil, fmt.Errorf("failed to export selection history: %w", err)
	}
	return backup, nil
}

// Export writes the backup as indented JSON to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("database exported",
		"users", len(backup.Users),
		"kids", len(backup.Kids),
		"menu_items", len(backup.MenuItems),
		"holidays", len(backup.Holidays),
		"selections", len(backup.Selections),
		"history", len(backup.SelectionHistory),
	)
	return backup, nil
}
