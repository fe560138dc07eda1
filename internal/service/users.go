package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// NewUser is a registration request
type NewUser struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
}

// Register creates a user whose role is decided by the invite code
func (s *Service) Register(nu NewUser, invite string) (*models.User, error) {
	var role models.Role
	switch {
	case invite == "":
		return nil, errors.WithStack(models.ErrInvalidInvite)
	case invite == s.cfg.OperatorInvite:
		role = models.RoleOperator
	case invite == s.cfg.WorkerInvite:
		role = models.RoleWorker
	default:
		return nil, errors.WithStack(models.ErrInvalidInvite)
	}
	return s.CreateUser(nu, role)
}

// CreateUser creates a user with an explicit role. It backs local
// administration, where no invite code is involved.
func (s *Service) CreateUser(nu NewUser, role models.Role) (*models.User, error) {
	username := strings.TrimSpace(nu.Username)
	if username == "" || nu.Password == "" {
		return nil, errors.Wrap(models.ErrInvalidCredentials, "username and password are required")
	}
	if role != models.RoleOperator && role != models.RoleWorker {
		return nil, errors.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		DisplayName:  strings.TrimSpace(nu.DisplayName),
		Email:        strings.TrimSpace(nu.Email),
		IsActive:     true,
	}
	if err := s.db.CreateUser(u); err != nil {
		return nil, err
	}
	s.log.WithField("username", username).WithField("role", role).Info("user registered")
	return u, nil
}

// Authenticate checks a username and password. Every failure reason is
// reported as models.ErrInvalidCredentials.
func (s *Service) Authenticate(username, password string) (*models.User, error) {
	u, err := s.db.GetUserByUsername(strings.TrimSpace(username))
	if errors.Is(err, models.ErrUnknownUser) {
		return nil, errors.WithStack(models.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, errors.WithStack(models.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errors.WithStack(models.ErrInvalidCredentials)
	}
	if err := s.db.TouchLastLogin(u.ID); err != nil {
		s.log.WithError(err).WithField("username", u.Username).Warn("failed to record login")
	}
	return u, nil
}

// ResolveUser finds a user by id, falling back to username
func (s *Service) ResolveUser(ref string) (*models.User, error) {
	u, err := s.db.GetUser(ref)
	if errors.Is(err, models.ErrUnknownUser) {
		return s.db.GetUserByUsername(ref)
	}
	return u, err
}

// ListUsers returns users with role, or all users when role is empty
func (s *Service) ListUsers(role models.Role) ([]models.User, error) {
	return s.db.ListUsers(role)
}
