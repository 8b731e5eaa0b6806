package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/converge-shop/internal/model"
)

// AvatarURL возвращает детерминированный адрес аватара пользователя Slack.
func AvatarURL(slackID string) string {
	return "https://cachet.dunkirk.sh/users/" + slackID + "/r"
}

// UserFieldsUpdate описывает частичное обновление полей пользователя.
// Nil-поля не изменяются.
type UserFieldsUpdate struct {
	Country         *string
	YswsDBFulfilled *bool
}

// Empty сообщает, что обновление ничего не меняет.
func (u UserFieldsUpdate) Empty() bool {
	return u.Country == nil && u.YswsDBFulfilled == nil
}

// EnsureUser создаёт пользователя, если его ещё нет, и возвращает признак создания.
func (r *PostgresRepository) EnsureUser(ctx context.Context, slackID, avatarURL string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (slack_id, avatar_url) VALUES ($1, $2) ON CONFLICT (slack_id) DO NOTHING`,
		slackID, avatarURL,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetUserWithTokens возвращает пользователя вместе с доступным балансом.
func (r *PostgresRepository) GetUserWithTokens(ctx context.Context, slackID string) (*model.UserWithTokens, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT slack_id, avatar_url, is_admin, country, ysws_db_fulfilled, tokens
		 FROM users_with_tokens
		 WHERE slack_id = $1`,
		slackID,
	)

	u, err := scanUserWithTokens(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsersWithTokens возвращает всех пользователей с балансами.
func (r *PostgresRepository) ListUsersWithTokens(ctx context.Context) ([]model.UserWithTokens, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT slack_id, avatar_url, is_admin, country, ysws_db_fulfilled, tokens
		 FROM users_with_tokens
		 ORDER BY slack_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.UserWithTokens
	for rows.Next() {
		u, err := scanUserWithTokens(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// ListUsers возвращает всех пользователей без балансов.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT slack_id, avatar_url, is_admin, country, ysws_db_fulfilled FROM users ORDER BY slack_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.SlackID, &u.AvatarURL, &u.IsAdmin, &u.Country, &u.YswsDBFulfilled); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// UpdateUserFields применяет частичное обновление к пользователю.
func (r *PostgresRepository) UpdateUserFields(ctx context.Context, slackID string, upd UserFieldsUpdate) error {
	if upd.Empty() {
		return nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET country = COALESCE($2, country),
		     ysws_db_fulfilled = COALESCE($3, ysws_db_fulfilled)
		 WHERE slack_id = $1`,
		slackID, upd.Country, upd.YswsDBFulfilled,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUserWithTokens(row scanner) (*model.UserWithTokens, error) {
	var u model.UserWithTokens
	err := row.Scan(&u.SlackID, &u.AvatarURL, &u.IsAdmin, &u.Country, &u.YswsDBFulfilled, &u.Tokens)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
