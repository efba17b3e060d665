package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", b.cost()), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c < b.cost()
}

// Repository is the persistence the service needs; *repo.UserRepo implements it.
type Repository interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, orgID string, id int64) (*entity.User, error)
	ListByOrganization(ctx context.Context, orgID string) ([]entity.User, error)
	GetAccessRecord(ctx context.Context, id int64) (*entity.AccessRecord, error)
	GetAuthView(ctx context.Context, id int64) (*entity.AuthView, error)
	IncrementFailedLogin(ctx context.Context, id int64) (int, error)
	LockIfThreshold(ctx context.Context, id int64, threshold int, lockMinutes int) (bool, error)
	ResetLoginSuccess(ctx context.Context, id int64) error
	UnlockIfExpired(ctx context.Context, id int64) (bool, error)
	UpdatePassword(ctx context.Context, orgID string, id int64, hash, algo string) (int64, error)
	UpdateProfile(ctx context.Context, orgID string, id int64, fullName, email string) (int64, error)
	UpdateAccess(ctx context.Context, orgID string, id int64, c entity.AccessColumns) (int64, error)
	Delete(ctx context.Context, orgID string, id int64) (int64, error)
}

// ChangeNotifier is told about account changes that invalidate cached permissions.
type ChangeNotifier interface {
	PermissionsChanged(userID int64)
	UserDeleted(userID int64)
}

type noopNotifier struct{}

func (noopNotifier) PermissionsChanged(int64) {}
func (noopNotifier) UserDeleted(int64)        {}

// UserService orchestrates authentication and staff account lifecycle flows.
type UserService struct {
	repo     Repository
	hasher   PasswordHasher
	notifier ChangeNotifier
	// configuration knobs
	MaxFailed   int
	LockMinutes int
}

func NewUserService(r Repository, hasher PasswordHasher, notifier ChangeNotifier) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &UserService{repo: r, hasher: hasher, notifier: notifier, MaxFailed: 6, LockMinutes: 15}
}

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrLocked         = auth.ErrLocked
	ErrDisabled       = auth.ErrDisabled
	ErrBadCredentials = auth.ErrBadCredentials
	ErrInvalidInput   = errors.New("invalid input")
	ErrSelfDelete     = errors.New("cannot delete own account")
)

// AuthenticatePassword performs password authentication by email.
// On success resets counters and returns the auth view.
func (s *UserService) AuthenticatePassword(ctx context.Context, email, password string) (*entity.AuthView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrBadCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}

	// Expired lock auto-unlock attempt
	if u.Status == "locked" && u.LockedUntil != nil && u.LockedUntil.Before(time.Now()) {
		if unlocked, _ := s.repo.UnlockIfExpired(ctx, u.ID); unlocked {
			u.Status = "active"
			u.LockedUntil = nil
		}
	}

	if u.Status == "locked" {
		return nil, ErrLocked
	}
	if u.Status == "disabled" {
		return nil, ErrDisabled
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		return nil, ErrBadCredentials
	}

	if !s.hasher.Verify(*u.PasswordHash, password) {
		if _, incErr := s.repo.IncrementFailedLogin(ctx, u.ID); incErr == nil {
			_, _ = s.repo.LockIfThreshold(ctx, u.ID, s.MaxFailed, s.LockMinutes)
		}
		return nil, ErrBadCredentials
	}

	if err := s.repo.ResetLoginSuccess(ctx, u.ID); err != nil {
		return nil, err
	}

	view, err := s.repo.GetAuthView(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	if s.hasher.NeedsRehash(*u.PasswordHash) {
		if newHash, algo, hErr := s.hasher.Hash(password); hErr == nil {
			_, _ = s.repo.UpdatePassword(ctx, u.OrganizationID, u.ID, newHash, algo)
		}
	}
	return view, nil
}

// CreateInput is what an administrator provides for a new staff account.
type CreateInput struct {
	FullName    string
	Email       string
	Password    string
	Permissions access.Levels
}

// CreateUser adds an account to the organization.
func (s *UserService) CreateUser(ctx context.Context, orgID string, in CreateInput) (int64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if orgID == "" || email == "" || in.Password == "" {
		return 0, ErrInvalidInput
	}
	hash, algo, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, err
	}
	u := &entity.User{
		OrganizationID: orgID,
		FullName:       strings.TrimSpace(in.FullName),
		Email:          email,
		PasswordHash:   &hash,
		PasswordAlgo:   &algo,
		Status:         "active",
		AccessColumns:  entity.ColumnsFromLevels(in.Permissions),
	}
	return s.repo.Create(ctx, u)
}

// UpdateInput carries optional changes; nil fields are left untouched.
type UpdateInput struct {
	FullName *string
	Email    *string
	Password *string
}

// UpdateUser changes profile fields and, optionally, the password.
func (s *UserService) UpdateUser(ctx context.Context, orgID string, id int64, in UpdateInput) error {
	u, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if in.FullName != nil || in.Email != nil {
		name, email := u.FullName, u.Email
		if in.FullName != nil {
			name = strings.TrimSpace(*in.FullName)
		}
		if in.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*in.Email))
			if email == "" {
				return ErrInvalidInput
			}
		}
		if _, err := s.repo.UpdateProfile(ctx, orgID, id, name, email); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
	}
	if in.Password != nil {
		if *in.Password == "" {
			return ErrInvalidInput
		}
		hash, algo, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return err
		}
		if _, err := s.repo.UpdatePassword(ctx, orgID, id, hash, algo); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
	}
	return nil
}

// DeleteUser removes an account. Administrators cannot remove themselves.
func (s *UserService) DeleteUser(ctx context.Context, orgID string, actorID, id int64) error {
	if actorID == id {
		return ErrSelfDelete
	}
	n, err := s.repo.Delete(ctx, orgID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	s.notifier.UserDeleted(id)
	return nil
}

// SetAccess rewrites the permission columns and notifies listeners so cached permissions are dropped.
func (s *UserService) SetAccess(ctx context.Context, orgID string, id int64, levels access.Levels) error {
	n, err := s.repo.UpdateAccess(ctx, orgID, id, entity.ColumnsFromLevels(levels))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	s.notifier.PermissionsChanged(id)
	return nil
}

// List returns the organization's staff accounts.
func (s *UserService) List(ctx context.Context, orgID string) ([]entity.Profile, error) {
	rows, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, entity.ProfileOf(&rows[i]))
	}
	return out, nil
}

// GetAccessRecord exposes the resolver projection.
func (s *UserService) GetAccessRecord(ctx context.Context, id int64) (*entity.AccessRecord, error) {
	return s.repo.GetAccessRecord(ctx, id)
}
