package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sealroom/models"
)

type SQLiteUserStore struct {
	db *sql.DB
}

func NewSQLiteUserStore(db *sql.DB) *SQLiteUserStore {
	return &SQLiteUserStore{
		db: db,
	}
}

func (s *SQLiteUserStore) CreateUser(ctx context.Context, user models.User) error {
	eu, err := s.GetUserByUsername(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("checking if user exists: %w", err)
	}

	if eu != nil {
		return ErrConflictedUser
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (name, username, password, avatar, is_online)
		VALUES (@name, @username, @password, @avatar, 0)`,
		sql.Named("name", user.Name), sql.Named("username", user.Username),
		sql.Named("password", string(hashed)), sql.Named("avatar", user.Avatar))
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *SQLiteUserStore) GetUserByUsername(ctx context.Context, username string) (*models.UserWithoutSecrets, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, username, avatar, is_online, last_seen FROM users
		WHERE username = ? LIMIT 1`, username)

	user := new(models.UserWithoutSecrets)
	var lastSeen sql.NullTime

	err := row.Scan(&user.Name, &user.Username, &user.Avatar, &user.IsOnline, &lastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	if lastSeen.Valid {
		t := lastSeen.Time
		user.LastSeen = &t
	}

	return user, nil
}

func (s *SQLiteUserStore) GetUsersByUsernames(ctx context.Context, usernames ...string) ([]models.UserWithoutSecrets, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	values := make([]interface{}, 0, len(usernames))
	for _, username := range usernames {
		values = append(values, username)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, username, avatar, is_online, last_seen FROM users
		WHERE username IN (`+strings.Repeat("?,", len(usernames)-1)+`?)`,
		values...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var users []models.UserWithoutSecrets

	for rows.Next() {
		user := models.UserWithoutSecrets{}
		var lastSeen sql.NullTime
		if err := rows.Scan(&user.Name, &user.Username, &user.Avatar, &user.IsOnline, &lastSeen); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			user.LastSeen = &t
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return users, nil
}

func (s *SQLiteUserStore) UpdateUser(ctx context.Context, username string, input UserUpdateInput) (*models.UserWithoutSecrets, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = @name, avatar = @avatar WHERE username = @username`,
		sql.Named("name", input.Name), sql.Named("avatar", input.Avatar),
		sql.Named("username", username))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(update users): %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("RowsAffected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	return s.GetUserByUsername(ctx, username)
}

func (s *SQLiteUserStore) ListUsers(ctx context.Context) ([]models.UserWithoutSecrets, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, username, avatar, is_online, last_seen FROM users
		ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var users []models.UserWithoutSecrets

	for rows.Next() {
		user := models.UserWithoutSecrets{}
		var lastSeen sql.NullTime
		if err := rows.Scan(&user.Name, &user.Username, &user.Avatar, &user.IsOnline, &lastSeen); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			user.LastSeen = &t
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return users, nil
}

func (s *SQLiteUserStore) ComparePassword(ctx context.Context, username, password string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT password FROM users WHERE username = ? LIMIT 1`, username)

	var storedPassword string
	err := row.Scan(&storedPassword)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scanning password: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedPassword), []byte(password)); err != nil {
		return false, nil
	}

	return true, nil
}

func (s *SQLiteUserStore) SetOnline(ctx context.Context, username string, online bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_online = @is_online, last_seen = @last_seen WHERE username = @username`,
		sql.Named("is_online", online), sql.Named("last_seen", time.Now().UTC()),
		sql.Named("username", username))
	if err != nil {
		return fmt.Errorf("ExecContext(update users): %w", err)
	}
	return nil
}
