package service

import (
	"context"
	"strings"

	"schoollunch/internal/models"
	"schoollunch/internal/repository"
	"schoollunch/internal/validation"
)

// KidService manages kid profiles on behalf of their parent
type KidService struct {
	store repository.KidStore
}

// NewKidService creates a new kid service
func NewKidService(store repository.KidStore) *KidService {
	return &KidService{store: store}
}

// KidInput is the payload for creating or replacing a kid profile
type KidInput struct {
	Name           string `json:"name" validate:"required,max=100"`
	Grade          string `json:"grade" validate:"required,max=20"`
	School         string `json:"school" validate:"required,max=200"`
	RollNumber     string `json:"rollNumber" validate:"required,max=50"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female other"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,max=2048"`
}

func (in *KidInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Grade = strings.TrimSpace(in.Grade)
	in.School = strings.TrimSpace(in.School)
	in.RollNumber = strings.TrimSpace(in.RollNumber)
}

// List returns the kids owned by userID
func (s *KidService) List(ctx context.Context, userID int64) ([]models.Kid, error) {
	kids, err := s.store.ListKidsByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("failed to list kids", err)
	}
	return kids, nil
}

// Get returns a kid owned by userID
func (s *KidService) Get(ctx context.Context, userID, kidID int64) (*models.Kid, error) {
	return ownedKid(ctx, s.store, userID, kidID)
}

// Create adds a kid profile for userID
func (s *KidService) Create(ctx context.Context, userID int64, in KidInput) (*models.Kid, error) {
	in.normalize()
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}

	kid := &models.Kid{
		UserID:         userID,
		Name:           in.Name,
		Grade:          in.Grade,
		School:         in.School,
		RollNumber:     in.RollNumber,
		Gender:         in.Gender,
		ProfilePicture: in.ProfilePicture,
	}
	if err := s.store.CreateKid(ctx, kid); err != nil {
		return nil, storeErr("failed to create kid", err)
	}
	return kid, nil
}

// Update replaces a kid's profile
func (s *KidService) Update(ctx context.Context, userID, kidID int64, in KidInput) (*models.Kid, error) {
	in.normalize()
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}

	kid, err := ownedKid(ctx, s.store, userID, kidID)
	if err != nil {
		return nil, err
	}
	kid.Name = in.Name
	kid.Grade = in.Grade
	kid.School = in.School
	kid.RollNumber = in.RollNumber
	kid.Gender = in.Gender
	kid.ProfilePicture = in.ProfilePicture

	updated, err := s.store.UpdateKid(ctx, kid)
	if err != nil {
		return nil, storeErr("failed to update kid", err)
	}
	if !updated {
		return nil, ErrKidNotFound
	}
	return kid, nil
}

// Delete removes a kid and, through the cascade, the kid's selections
func (s *KidService) Delete(ctx context.Context, userID, kidID int64) error {
	deleted, err := s.store.DeleteKid(ctx, kidID, userID)
	if err != nil {
		return storeErr("failed to delete kid", err)
	}
	if !deleted {
		return ErrKidNotFound
	}
	return nil
}

// ownedKid loads a kid and hides kids owned by other users behind ErrKidNotFound
func ownedKid(ctx context.Context, store repository.KidStore, userID, kidID int64) (*models.Kid, error) {
	kid, err := store.GetKidByID(ctx, kidID)
	if err != nil {
		return nil, storeErr("failed to get kid", err)
	}
	if !kid.IsOwnedBy(userID) {
		return nil, ErrKidNotFound
	}
	return kid, nil
}
