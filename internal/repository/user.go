package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// UserFilter — параметры фильтрации списка пользователей.
type UserFilter struct {
	// OnlyConfirmed — только подтверждённые аккаунты.
	OnlyConfirmed bool
	// Roles — пользователи, имеющие хотя бы одну из ролей.
	Roles []model.Role
	// Group — точное совпадение группы.
	Group *string
	// Page — номер страницы (с 1).
	Page int
	// Size — размер страницы.
	Size int
}

// UserRepository — интерфейс доступа к таблице users.
type UserRepository interface {
	// Create создаёт пользователя.
	Create(ctx context.Context, u *model.User) error
	// GetByLogin возвращает пользователя по логину.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	// GetByID возвращает пользователя по UUID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// List возвращает страницу пользователей и общее количество.
	List(ctx context.Context, f UserFilter) ([]*model.User, int, error)
	// SetConfirmed меняет статус подтверждения аккаунта.
	SetConfirmed(ctx context.Context, id string, confirmed bool) (*model.User, error)
	// SetRoles заменяет набор ролей пользователя.
	SetRoles(ctx context.Context, id string, roles []model.Role) (*model.User, error)
	// SetGroup меняет учебную группу пользователя.
	SetGroup(ctx context.Context, id string, group *string) (*model.User, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, login, name, password_hash, roles, "group", is_confirmed, created_at, updated_at`

// scanUser сканирует строку результата в модель User.
// roles хранится как TEXT[] — сканируем в []string и конвертируем.
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var roles []string
	err := row.Scan(
		&u.ID, &u.Login, &u.Name, &u.PasswordHash, &roles,
		&u.Group, &u.IsConfirmed, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Roles = toModelRoles(roles)
	return u, nil
}

func toModelRoles(roles []string) []model.Role {
	result := make([]model.Role, len(roles))
	for i, r := range roles {
		result[i] = model.Role(r)
	}
	return result
}

func toStringRoles(roles []model.Role) []string {
	result := make([]string, len(roles))
	for i, r := range roles {
		result[i] = string(r)
	}
	return result
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (login, name, password_hash, roles, "group", is_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.Login, u.Name, u.PasswordHash, toStringRoles(u.Roles), u.Group, u.IsConfirmed,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с таким логином уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE login = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя по логину: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context, f UserFilter) ([]*model.User, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if f.OnlyConfirmed {
		conditions = append(conditions, "is_confirmed = TRUE")
	}
	if len(f.Roles) > 0 {
		conditions = append(conditions, fmt.Sprintf("roles && $%d", argNum))
		args = append(args, toStringRoles(f.Roles))
		argNum++
	}
	if f.Group != nil {
		conditions = append(conditions, fmt.Sprintf(`"group" = $%d`, argNum))
		args = append(args, *f.Group)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Общее количество до пагинации
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM users %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, userColumns, where, argNum, argNum+1)

	args = append(args, f.Size, (f.Page-1)*f.Size)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u := &model.User{}
		var roles []string
		if err := rows.Scan(
			&u.ID, &u.Login, &u.Name, &u.PasswordHash, &roles,
			&u.Group, &u.IsConfirmed, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		u.Roles = toModelRoles(roles)
		result = append(result, u)
	}
	return result, total, rows.Err()
}

func (r *userRepo) SetConfirmed(ctx context.Context, id string, confirmed bool) (*model.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET is_confirmed = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, id, confirmed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка подтверждения аккаунта: %w", err)
	}
	return u, nil
}

func (r *userRepo) SetRoles(ctx context.Context, id string, roles []model.Role) (*model.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET roles = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, id, toStringRoles(roles)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления ролей: %w", err)
	}
	return u, nil
}

func (r *userRepo) SetGroup(ctx context.Context, id string, group *string) (*model.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET "group" = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, id, group))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления группы: %w", err)
	}
	return u, nil
}
