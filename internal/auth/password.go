package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"ledgerbook/internal/core"
	"ledgerbook/internal/storage"
)

// UserStorage defines the user persistence the gate depends on.
type UserStorage interface {
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, username, passwordHash, role string) (core.User, error)
	UpdateUserCredentials(ctx context.Context, id int64, username, passwordHash string) error
}

var _ UserStorage = (*storage.SQLiteRepository)(nil)

// PasswordAuthenticator checks and rotates the bcrypt-hashed credentials of
// the ledger owner. It issues no tokens.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordAuthenticator creates the gate. A cost <= 0 uses bcrypt.DefaultCost.
func NewPasswordAuthenticator(storage UserStorage, cost int) *PasswordAuthenticator {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordAuthenticator{
		storage: storage,
		cost:    cost,
	}
}

func (a *PasswordAuthenticator) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %w", core.ErrInternal, err)
	}
	return string(h), nil
}

// burnCompare spends the same bcrypt work as a real check so that unknown
// usernames cannot be told apart by response time.
func (a *PasswordAuthenticator) burnCompare(password string) {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ledgerbook-dummy-password"), a.cost)
	})
	_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
}

// VerifyCredentials returns the user when username and password match.
// Unknown users and wrong passwords both yield core.ErrInvalidCredentials.
func (a *PasswordAuthenticator) VerifyCredentials(ctx context.Context, username, password string) (core.User, error) {
	user, err := a.storage.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		a.burnCompare(password)
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return user, nil
}

// RotateCredentials replaces username and password of the user identified by
// the old pair. Collisions with another user's name surface as internal
// errors from the store.
func (a *PasswordAuthenticator) RotateCredentials(ctx context.Context, oldUsername, oldPassword, newUsername, newPassword string) error {
	if strings.TrimSpace(oldUsername) == "" || oldPassword == "" || strings.TrimSpace(newUsername) == "" || newPassword == "" {
		return fmt.Errorf("%w: all fields are required", core.ErrInvalidInput)
	}

	user, err := a.VerifyCredentials(ctx, oldUsername, oldPassword)
	if err != nil {
		return err
	}

	hash, err := a.hash(newPassword)
	if err != nil {
		return err
	}
	if err := a.storage.UpdateUserCredentials(ctx, user.ID, strings.TrimSpace(newUsername), hash); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInternal, err)
	}

	slog.InfoContext(ctx, "Credentials rotated", "user_id", user.ID, "username", strings.TrimSpace(newUsername))
	return nil
}

// EnsureDefaultUser creates the initial user when the users table is empty.
func (a *PasswordAuthenticator) EnsureDefaultUser(ctx context.Context, username, password string) (bool, error) {
	n, err := a.storage.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return false, fmt.Errorf("%w: default username and password are required", core.ErrInvalidInput)
	}

	hash, err := a.hash(password)
	if err != nil {
		return false, err
	}
	if _, err := a.storage.CreateUser(ctx, strings.TrimSpace(username), hash, core.DefaultRole); err != nil {
		return false, err
	}
	return true, nil
}
