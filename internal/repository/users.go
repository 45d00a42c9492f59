package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yourusername/vocabot/internal/models"
)

var userColumns = []string{"id", "username", "chat_id", "link_token", "link_token_expires_at", "created_at"}

func (r *Postgres) CreateUser(ctx context.Context, user *models.UserProfile) error {
	query := r.psql.Insert("users").
		Columns("username", "created_at").
		Values(user.Username, user.CreatedAt).
		Suffix("RETURNING id")

	if err := r.get(ctx, &user.ID, query); err != nil {
		return fmt.Errorf("create user (username: %s): %w", user.Username, err)
	}
	return nil
}

func (r *Postgres) getUserWhere(ctx context.Context, pred squirrel.Sqlizer) (*models.UserProfile, error) {
	query := r.psql.Select(userColumns...).From("users").Where(pred)

	var user models.UserProfile
	if err := r.get(ctx, &user, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *Postgres) GetUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	user, err := r.getUserWhere(ctx, squirrel.Eq{"id": userID})
	if err != nil {
		return nil, fmt.Errorf("get user (id: %d): %w", userID, err)
	}
	return user, nil
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	user, err := r.getUserWhere(ctx, squirrel.Eq{"username": username})
	if err != nil {
		return nil, fmt.Errorf("get user (username: %s): %w", username, err)
	}
	return user, nil
}

func (r *Postgres) GetUserByChatID(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	user, err := r.getUserWhere(ctx, squirrel.Eq{"chat_id": chatID})
	if err != nil {
		return nil, fmt.Errorf("get user (chat_id: %d): %w", chatID, err)
	}
	return user, nil
}

func (r *Postgres) GetUserByLinkToken(ctx context.Context, token string) (*models.UserProfile, error) {
	user, err := r.getUserWhere(ctx, squirrel.Eq{"link_token": token})
	if err != nil {
		return nil, fmt.Errorf("get user by link token: %w", err)
	}
	return user, nil
}

func (r *Postgres) GetLinkedUsers(ctx context.Context) ([]*models.UserProfile, error) {
	query := r.psql.Select(userColumns...).
		From("users").
		Where(squirrel.NotEq{"chat_id": nil}).
		OrderBy("id ASC")

	var users []*models.UserProfile
	if err := r.selectAll(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("query linked users: %w", err)
	}

	return users, nil
}

func (r *Postgres) SetLinkToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	query := r.psql.Update("users").
		Set("link_token", token).
		Set("link_token_expires_at", expiresAt).
		Where(squirrel.Eq{"id": userID})

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("set link token (user_id: %d): %w", userID, err)
	}
	return nil
}

func (r *Postgres) ClearLinkToken(ctx context.Context, userID int64) error {
	query := r.psql.Update("users").
		Set("link_token", nil).
		Set("link_token_expires_at", nil).
		Where(squirrel.Eq{"id": userID})

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("clear link token (user_id: %d): %w", userID, err)
	}
	return nil
}

// LinkChat binds the chat and consumes the link token in one statement.
// LinkChat binds chatID to the user and consumes the link token. A chat
// belongs to one account at a time, so any previous binding is released.
func (r *Postgres) LinkChat(ctx context.Context, userID, chatID int64) error {
	return r.RunInTx(ctx, func(repo models.Repository) error {
		tx := repo.(*Postgres)

		release := tx.psql.Update("users").
			Set("chat_id", nil).
			Where(squirrel.Eq{"chat_id": chatID}).
			Where(squirrel.NotEq{"id": userID})

		if _, err := tx.exec(ctx, release); err != nil {
			return fmt.Errorf("release chat (chat_id: %d): %w", chatID, err)
		}

		query := tx.psql.Update("users").
			Set("chat_id", chatID).
			Set("link_token", nil).
			Set("link_token_expires_at", nil).
			Where(squirrel.Eq{"id": userID})

		if _, err := tx.exec(ctx, query); err != nil {
			return fmt.Errorf("link chat (user_id: %d, chat_id: %d): %w", userID, chatID, err)
		}
		return nil
	})
}

func (r *Postgres) UnlinkChat(ctx context.Context, userID int64) error {
	query := r.psql.Update("users").
		Set("chat_id", nil).
		Set("link_token", nil).
		Set("link_token_expires_at", nil).
		Where(squirrel.Eq{"id": userID})

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("unlink chat (user_id: %d): %w", userID, err)
	}
	return nil
}
