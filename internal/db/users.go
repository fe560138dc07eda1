package db

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

const userColumns = `id, username, password_hash, role, display_name, email, is_active, created_at, last_login`

// CreateUser inserts a user. A taken username yields models.ErrDuplicateUsername
// and leaves the table unchanged.
func (db *DB) CreateUser(u *models.User) error {
	u.CreatedAt = db.now()
	_, err := db.Exec(`
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.PasswordHash, string(u.Role), u.DisplayName, u.Email, u.IsActive, u.CreatedAt, u.LastLogin)
	if isUniqueViolation(err) {
		return errors.Wrapf(models.ErrDuplicateUsername, "username %s", u.Username)
	}
	return errors.WithStack(err)
}

// GetUser retrieves a user by ID. A missing user yields models.ErrUnknownUser.
func (db *DB) GetUser(id string) (*models.User, error) {
	return db.getUser("SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	return db.getUser("SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// ListUsers returns users with the given role, or every user when role is empty
func (db *DB) ListUsers(role models.Role) ([]models.User, error) {
	rows, err := db.Query(`
		SELECT `+userColumns+` FROM users
		WHERE ? = '' OR role = ?
		ORDER BY username
	`, string(role), string(role))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, errors.WithStack(rows.Err())
}

// TouchLastLogin records a successful login
func (db *DB) TouchLastLogin(id string) error {
	_, err := db.Exec("UPDATE users SET last_login = ? WHERE id = ?", db.now(), id)
	return errors.WithStack(err)
}

func (db *DB) getUser(query string, arg string) (*models.User, error) {
	u, err := scanUser(db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(models.ErrUnknownUser, "user %s", arg)
	}
	return u, err
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	var role string
	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.DisplayName, &u.Email, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	u.Role = models.Role(role)
	return u, nil
}
