package storage

import (
	"context"

	"ledgerbook/internal/core"
)

const getUserByUsername = `SELECT id, username, password_hash, role FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := q.db.QueryRowContext(ctx, getUserByUsername, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	return u, err
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

const createUser = `INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, username, passwordHash, role string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, username, passwordHash, role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateUserCredentials = `UPDATE users SET username = ?, password_hash = ? WHERE id = ?`

func (q *Queries) UpdateUserCredentials(ctx context.Context, id int64, username, passwordHash string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserCredentials, username, passwordHash, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
