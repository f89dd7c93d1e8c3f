package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrCredentialsRequired indicates an empty username or password.
	ErrCredentialsRequired = errors.New("users: username and password are required")
	// ErrPasswordTooShort indicates a password below the minimum length.
	ErrPasswordTooShort = errors.New("users: password must be at least 8 characters long")
	// ErrPasswordNeedsDigit indicates a password without a digit.
	ErrPasswordNeedsDigit = errors.New("users: password must contain at least one number")
	// ErrPasswordNeedsUpper indicates a password without an uppercase letter.
	ErrPasswordNeedsUpper = errors.New("users: password must contain at least one capital letter")
	// ErrPasswordEqualsUsername indicates username and password are identical.
	ErrPasswordEqualsUsername = errors.New("users: username and password cannot be the same")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("users: username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password; the two are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("users: invalid username or password")
)

const minPasswordLength = 8

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig carries the dependencies of the account service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	// BcryptCost overrides the hashing work factor; tests use bcrypt.MinCost
	// to avoid paying the production cost per case.
	BcryptCost int
}

// Service manages account signup and credential verification. It hands a
// verified user id to the transport layer; notes operations never see
// credentials.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	bcryptCost int
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database handle is required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: id provider is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		bcryptCost: cost,
	}, nil
}

// Signup validates the password policy, hashes the password with bcrypt and
// stores a new account. The username must be unique.
func (s *Service) Signup(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, password); err != nil {
		return User{}, err
	}

	var existing User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return User{}, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("users: username lookup failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hashing password: %w", err)
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		return User{}, fmt.Errorf("users: id generation failed: %w", err)
	}

	account := User{
		ID:           userID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return User{}, fmt.Errorf("users: account insert failed: %w", err)
	}
	return account, nil
}

// Authenticate verifies the credentials and returns the account. Unknown
// usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	var account User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("users: account lookup failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("users: comparing password hash: %w", err)
	}
	return account, nil
}

func validateSignup(username, password string) error {
	if username == "" || password == "" {
		return ErrCredentialsRequired
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return ErrPasswordNeedsDigit
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return ErrPasswordNeedsUpper
	}
	if username == password {
		return ErrPasswordEqualsUsername
	}
	return nil
}
