package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/models"
	"schoollunch/internal/repository"
	"schoollunch/internal/security"
	"schoollunch/internal/validation"
)

// AuthService handles accounts, sessions and bearer tokens
type AuthService struct {
	store           repository.Store
	tokens          *security.TokenManager
	clock           clockwork.Clock
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(store repository.Store, tokens *security.TokenManager, clock clockwork.Clock, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		store:           store,
		tokens:          tokens,
		clock:           clock,
		sessionDuration: sessionDuration,
	}
}

// RegisterInput is the payload for creating a local account
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// ProfileInput is the payload for a profile update
type ProfileInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female other"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,max=2048"`
}

func (in *RegisterInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	fields := validation.Struct(in)
	if fields == nil {
		fields = map[string]string{}
	}
	collectFieldError(fields, validation.ValidateUsername(in.Username))
	collectFieldError(fields, validation.ValidatePassword(in.Password))
	collectFieldError(fields, validation.ValidateName(in.Name))
	collectFieldError(fields, validation.ValidateEmail(in.Email))
	return invalidFields(fields)
}

func (in *ProfileInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	fields := validation.Struct(in)
	if fields == nil {
		fields = map[string]string{}
	}
	collectFieldError(fields, validation.ValidateName(in.Name))
	collectFieldError(fields, validation.ValidateEmail(in.Email))
	return invalidFields(fields)
}

func collectFieldError(fields map[string]string, err error) {
	var fe validation.FieldError
	if errors.As(err, &fe) {
		fields[fe.Field] = fe.Message
	}
}

// Register creates a local account. The very first account becomes an admin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, false)
}

// CreateAdmin creates another admin account on behalf of an existing admin
func (s *AuthService) CreateAdmin(ctx context.Context, actor *models.User, in RegisterInput) (*models.User, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, ErrForbidden
	}
	user, err := s.createUser(ctx, in, true)
	if err != nil {
		return nil, err
	}
	slog.Info("admin account created", "admin_id", user.ID, "created_by", actor.ID)
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, isAdmin bool) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: passwordHash,
		Name:         in.Name,
		Email:        in.Email,
		Gender:       in.Gender,
		IsAdmin:      isAdmin,
	}
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		count, err := tx.CountUsers(ctx)
		if err != nil {
			return err
		}
		// First user becomes admin
		if count == 0 {
			user.IsAdmin = true
		}
		created, err := tx.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		if !created {
			return ErrUsernameTaken
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("failed to create user", err)
	}
	return user, nil
}

// Login checks a username and password and opens a session
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Session, *models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, storeErr("failed to get user", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := security.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// LoginWithOAuth signs in the account linked to an OAuth identity, creating
// it on first sign-in
func (s *AuthService) LoginWithOAuth(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, invalidField("provider", "missing oauth identity")
	}

	user, err := s.store.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, storeErr("failed to lookup oauth user", err)
	}

	if user == nil {
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		user = &models.User{
			Username:      provider + "_" + subject,
			Name:          name,
			Email:         email,
			OAuthProvider: provider,
			OAuthSubject:  subject,
		}
		err := s.store.Atomic(ctx, func(tx repository.Store) error {
			count, err := tx.CountUsers(ctx)
			if err != nil {
				return err
			}
			user.IsAdmin = count == 0
			created, err := tx.CreateUser(ctx, user)
			if err != nil {
				return err
			}
			if !created {
				return ErrUsernameTaken
			}
			return nil
		})
		if err != nil {
			return nil, nil, storeErr("failed to create oauth user", err)
		}
		slog.Info("oauth account created", "user_id", user.ID, "provider", provider)
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) openSession(ctx context.Context, userID int64) (*models.Session, error) {
	now := s.clock.Now()
	session := &models.Session{
		ID:        security.GenerateSessionID(),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionDuration),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, storeErr("failed to create session", err)
	}
	return session, nil
}

// ValidateSession returns the user of a live session
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeErr("failed to get session", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired(s.clock.Now()) {
		if err := s.store.DeleteSession(ctx, sessionID); err != nil {
			slog.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, storeErr("failed to get user", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return storeErr("failed to logout", s.store.DeleteSession(ctx, sessionID))
}

// CleanupExpiredSessions removes expired sessions and reports how many were dropped
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.clock.Now())
	if err != nil {
		return 0, storeErr("failed to cleanup sessions", err)
	}
	return n, nil
}

// IssueToken creates a bearer token for user
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	return s.tokens.Generate(user.ID, user.Username)
}

// AuthenticateToken returns the user a bearer token was issued to
func (s *AuthService) AuthenticateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrSessionExpired
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrSessionNotFound
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr("failed to get user", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// GetUser returns a user by ID
func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile updates the name, email, gender and picture of a user
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = in.Name
	user.Email = in.Email
	user.Gender = in.Gender
	user.ProfilePicture = in.ProfilePicture
	if err := s.store.UpdateUserProfile(ctx, user); err != nil {
		return nil, storeErr("failed to update user", err)
	}
	return user, nil
}
