package postgres

import (
	"database/sql"

	"noteflow/internal/collab"
	"noteflow/pkg/logger"
)

// UserStore is the Postgres implementation of the identity-store boundary.
type UserStore struct {
	DB *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) FindUserByID(id string) (*collab.User, error) {
	var u collab.User
	err := s.DB.QueryRow(
		"SELECT id, name, email FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return nil, collab.ErrNotFound("user not found")
	} else if err != nil {
		logger.Sugar.Errorf("Failed to find user %s: %v", id, err)
		return nil, collab.ErrTransport("failed to find user", err)
	}
	return &u, nil
}

func (s *UserStore) FindUserByEmail(email string) (*collab.User, error) {
	var u collab.User
	err := s.DB.QueryRow(
		"SELECT id, name, email FROM users WHERE email = $1", email,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return nil, collab.ErrNotFound("user not found")
	} else if err != nil {
		logger.Sugar.Errorf("Failed to find user by email %s: %v", email, err)
		return nil, collab.ErrTransport("failed to find user", err)
	}
	return &u, nil
}
