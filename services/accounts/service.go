package accounts

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"reelpick/internal/database"
	"reelpick/models"
)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrNoAdminRemains     = errors.New("cannot remove the last admin")
)

const minPasswordLength = 8

// Service manages user accounts on top of the users table. Movies owned by a
// deleted user are reassigned to the oldest admin rather than dropped.
type Service struct {
	users  *database.UserRepository
	movies *database.MovieRepository
}

func NewService(users *database.UserRepository, movies *database.MovieRepository) *Service {
	return &Service{users: users, movies: movies}
}

// Registration carries the fields accepted from the signup form.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsAdmin   bool
}

// Register validates and creates a new user.
func (s *Service) Register(reg Registration) (*models.User, error) {
	username := strings.TrimSpace(reg.Username)
	email := strings.TrimSpace(strings.ToLower(reg.Email))

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if reg.Password == "" {
		return nil, ErrPasswordRequired
	}
	if len(reg.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if existing, err := s.users.GetUserByUsername(username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameExists
	}
	if existing, err := s.users.GetUserByEmail(email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		IsAdmin:      reg.IsAdmin,
		IsActive:     true,
	}
	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}

	log.Printf("[accounts] registered user %s (%s)", user.Username, user.ID)
	return user, nil
}

// Authenticate checks credentials and records the login time. Disabled
// accounts are rejected even with a correct password.
func (s *Service) Authenticate(username, pass string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn a comparison anyway so a missing user costs the same as a
		// wrong password.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidsaltinvalidsaltinvalidsaltinvalid"), []byte(pass))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pass)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.users.UpdateLastLogin(user.ID); err != nil {
		log.Printf("[accounts] recording login for %s failed: %v", user.Username, err)
	}
	return user, nil
}

// Get returns the user with the given ID.
func (s *Service) Get(id string) (*models.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List returns all users.
func (s *Service) List() ([]models.User, error) {
	return s.users.ListUsers()
}

// UpdateProfile changes name and email. An email already held by another
// user is rejected.
func (s *Service) UpdateProfile(id, firstName, lastName, email string) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if other, err := s.users.GetUserByEmail(email); err != nil {
		return nil, err
	} else if other != nil && other.ID != user.ID {
		return nil, ErrEmailExists
	}

	if err := s.users.UpdateProfile(id, strings.TrimSpace(firstName), strings.TrimSpace(lastName), email); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(id, current, next string) error {
	user, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if next == "" {
		return ErrPasswordRequired
	}
	if len(next) < minPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(id, string(hash))
}

// SetActive enables or disables an account. Disabling the last active admin
// is rejected.
func (s *Service) SetActive(id string, active bool) error {
	user, err := s.Get(id)
	if err != nil {
		return err
	}
	if !active && user.IsAdmin {
		if err := s.requireAnotherAdmin(id); err != nil {
			return err
		}
	}
	return s.users.SetActive(id, active)
}

// Delete removes a user. Their movies are reassigned to the oldest admin
// first so the catalog never loses entries. requesterID guards against
// self-deletion.
func (s *Service) Delete(id, requesterID string) error {
	if id == requesterID {
		return ErrCannotDeleteSelf
	}
	user, err := s.Get(id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		if err := s.requireAnotherAdmin(id); err != nil {
			return err
		}
	}

	admin, err := s.users.GetFirstAdmin()
	if err != nil {
		return err
	}
	if admin != nil && admin.ID != id {
		moved, err := s.movies.ReassignMovies(id, admin.ID)
		if err != nil {
			return fmt.Errorf("reassign movies: %w", err)
		}
		if moved > 0 {
			log.Printf("[accounts] reassigned %d movies from %s to %s", moved, user.Username, admin.Username)
		}
	}

	if err := s.users.DeleteUser(id); err != nil {
		return err
	}
	log.Printf("[accounts] deleted user %s (%s)", user.Username, id)
	return nil
}

// Stats returns the aggregate user counters for the admin dashboard.
func (s *Service) Stats() (database.UserStats, error) {
	return s.users.GetUserStats()
}

// EnsureAdmin creates the initial admin account when no admin exists. With
// no configured password a random one is generated and printed once to the
// log; it is not stored anywhere else.
func (s *Service) EnsureAdmin(username, email, pass string) error {
	admin, err := s.users.GetFirstAdmin()
	if err != nil {
		return err
	}
	if admin != nil {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if email == "" {
		email = "admin@localhost"
	}

	generated := false
	if pass == "" {
		pass, err = password.Generate(16, 4, 2, false, false)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}

	user, err := s.Register(Registration{
		Username: username,
		Email:    email,
		Password: pass,
		IsAdmin:  true,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	if generated {
		log.Printf("[accounts] created admin %q with generated password: %s", user.Username, pass)
		log.Println("[accounts] change this password after first login")
	} else {
		log.Printf("[accounts] created admin %q", user.Username)
	}
	return nil
}

func (s *Service) requireAnotherAdmin(excludeID string) error {
	users, err := s.users.ListUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.IsAdmin && u.IsActive && u.ID != excludeID {
			return nil
		}
	}
	return ErrNoAdminRemains
}
