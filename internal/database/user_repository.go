package database

import (
	"database/sql"
	"fmt"
	"time"

	"reelpick/models"
)

// UserRepository provides access to the users table.
type UserRepository struct {
	conn *sql.DB
}

// NewUserRepository creates a user repository.
func NewUserRepository(conn *sql.DB) *UserRepository {
	return &UserRepository{conn: conn}
}

// CreateUser inserts a new user. CreatedAt is stamped when zero.
func (r *UserRepository) CreateUser(u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn.Exec(
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name, is_admin, is_active, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		boolToInt(u.IsAdmin), boolToInt(u.IsActive),
		u.CreatedAt.UTC().Format(time.RFC3339), formatTimePtr(u.LastLogin),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID returns the user with the given ID, or nil.
func (r *UserRepository) GetUserByID(id string) (*models.User, error) {
	return r.getWhere(`id = ?`, id)
}

// GetUserByUsername returns the user with the given username, or nil.
func (r *UserRepository) GetUserByUsername(username string) (*models.User, error) {
	return r.getWhere(`username = ?`, username)
}

// GetUserByEmail returns the user with the given email, or nil.
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.getWhere(`email = ?`, email)
}

// GetFirstAdmin returns the longest-standing admin user, or nil when none
// exists. Deleted users' movies are reassigned to this account.
func (r *UserRepository) GetFirstAdmin() (*models.User, error) {
	return r.getWhere(`is_admin = 1 ORDER BY created_at ASC, id ASC LIMIT 1`)
}

// ListUsers returns users newest-first.
func (r *UserRepository) ListUsers() ([]models.User, error) {
	rows, err := r.conn.Query(selectUser + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateProfile updates the user's name and email fields.
func (r *UserRepository) UpdateProfile(id, firstName, lastName, email string) error {
	res, err := r.conn.Exec(
		`UPDATE users SET first_name = ?, last_name = ?, email = ? WHERE id = ?`,
		firstName, lastName, email, id,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRowAffected(res, "user")
}

// UpdatePassword replaces the user's password hash.
func (r *UserRepository) UpdatePassword(id, passwordHash string) error {
	res, err := r.conn.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRowAffected(res, "user")
}

// UpdateLastLogin stamps the user's last login with the current time.
func (r *UserRepository) UpdateLastLogin(id string) error {
	res, err := r.conn.Exec(
		`UPDATE users SET last_login = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return requireRowAffected(res, "user")
}

// SetActive enables or disables a user account.
func (r *UserRepository) SetActive(id string, active bool) error {
	res, err := r.conn.Exec(`UPDATE users SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return requireRowAffected(res, "user")
}

// DeleteUser removes a user row. Movie reassignment is handled by the
// accounts service before this is called.
func (r *UserRepository) DeleteUser(id string) error {
	res, err := r.conn.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRowAffected(res, "user")
}

// UserStats holds aggregate counts for the admin page.
type UserStats struct {
	Total    int `json:"totalUsers"`
	Active   int `json:"activeUsers"`
	Admins   int `json:"adminUsers"`
	Inactive int `json:"inactiveUsers"`
}

// GetUserStats returns aggregate user counts.
func (r *UserRepository) GetUserStats() (UserStats, error) {
	var stats UserStats
	row := r.conn.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(is_active), 0),
		        COALESCE(SUM(is_admin), 0)
		 FROM users`)
	if err := row.Scan(&stats.Total, &stats.Active, &stats.Admins); err != nil {
		return UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

const selectUser = `SELECT id, username, email, password_hash, first_name, last_name, is_admin, is_active, created_at, last_login FROM users`

func (r *UserRepository) getWhere(where string, args ...any) (*models.User, error) {
	row := r.conn.QueryRow(selectUser+` WHERE `+where, args...)
	return scanUser(row)
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		isAdmin   int
		isActive  int
		createdAt string
		lastLogin sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&isAdmin, &isActive, &createdAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.IsAdmin = isAdmin != 0
	u.IsActive = isActive != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		u.CreatedAt = t
	}
	u.LastLogin = parseTimePtr(lastLogin)
	return &u, nil
}
