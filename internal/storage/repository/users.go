package repository

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// RegisterUser сохраняет пользователя вместе с настройками напоминаний по умолчанию.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var newID string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (uid, email, username, password_hash, role)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING uid`,
			user.UUID, user.Email, user.Username, user.PasswordHash, user.Role,
		).Scan(&newID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO notification_settings (user_uid) VALUES ($1) ON CONFLICT DO NOTHING`, newID)
		return err
	})
	if err != nil {
		return "", mapErr(op, err)
	}
	return newID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u := &models.User{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT uid, email, username, password_hash, role, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.UUID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u := &models.User{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT uid, email, username, password_hash, role, created_at
		 FROM users WHERE uid = $1`, userUID,
	).Scan(&u.UUID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}
