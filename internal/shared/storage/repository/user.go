package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/storage"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, created_at`

// CreateUser 创建用户，ID 为空时自动生成；邮箱重复返回 storage.ErrDuplicate
func (r *Store) CreateUser(ctx context.Context, user *model.User) (err error) {
	defer r.track("insert", "users", time.Now(), &err)

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err = r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`),
		user.ID, user.Name, user.Email, user.PasswordHash,
	)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return err
	}

	return r.db.QueryRowContext(ctx, r.rebind(`SELECT created_at FROM users WHERE id = $1`), user.ID).
		Scan(&user.CreatedAt)
}

// UpsertUser 按邮箱插入或更新姓名和密码（种子数据使用）
func (r *Store) UpsertUser(ctx context.Context, user *model.User) (err error) {
	defer r.track("upsert", "users", time.Now(), &err)

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err = r.db.QueryRowContext(ctx, r.rebind(
		`INSERT INTO users (id, name, email, password_hash)
		 VALUES ($1, $2, $3, $4) `+
			r.dialect.UpsertConflict("email", []string{
				"name = EXCLUDED.name",
				"password_hash = EXCLUDED.password_hash",
			})+
			` RETURNING id`),
		user.ID, user.Name, user.Email, user.PasswordHash,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByEmail 通过邮箱查找用户（不区分大小写）
func (r *Store) GetUserByEmail(ctx context.Context, email string) (user *model.User, err error) {
	defer r.track("select", "users", time.Now(), &err)

	row := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = $1`),
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// GetUserByID 通过 ID 查找用户
func (r *Store) GetUserByID(ctx context.Context, id string) (user *model.User, err error) {
	defer r.track("select", "users", time.Now(), &err)

	row := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = $1`), id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	var hash sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if hash.Valid {
		u.PasswordHash = &hash.String
	}
	return u, nil
}
