package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledgerbook/internal/core"

	_ "modernc.org/sqlite"
)

// Connection pragmas. Foreign keys are per connection in SQLite, so they
// travel in the DSN rather than in a migration.
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Queries returns statements bound to the connection pool.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// WithinTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error or panic.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(r.queries.WithTx(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetUserByUsername returns core.ErrNotFound when no user has that name.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	n, err := r.queries.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash, role string) (core.User, error) {
	id, err := r.queries.CreateUser(ctx, username, passwordHash, role)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", id, "username", username, "role", role)
	return core.User{ID: id, Username: username, PasswordHash: passwordHash, Role: role}, nil
}

// UpdateUserCredentials overwrites username and password hash in one statement.
func (r *SQLiteRepository) UpdateUserCredentials(ctx context.Context, id int64, username, passwordHash string) error {
	n, err := r.queries.UpdateUserCredentials(ctx, id, username, passwordHash)
	if err != nil {
		return fmt.Errorf("update user credentials: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return nil
}
