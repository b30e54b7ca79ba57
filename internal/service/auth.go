// auth.go — регистрация, вход и профиль пользователя.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/buzzilka/team-development/internal/api/middleware"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/repository"
)

// AuthService — сервис аутентификации и управления профилем.
type AuthService struct {
	users      repository.UserRepository
	jwt        *middleware.JWTAuth
	tokenTTL   time.Duration
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	users repository.UserRepository,
	jwt *middleware.JWTAuth,
	tokenTTL time.Duration,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		jwt:        jwt,
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "auth_service")),
	}
}

// RegisterParams — параметры регистрации нового пользователя.
type RegisterParams struct {
	Login    string
	Password string
	Name     string
	Roles    []model.Role
	Group    *string
}

// Register создаёт аккаунт. Новый аккаунт не подтверждён — до решения
// деканата пользователю доступен только собственный профиль.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*model.User, error) {
	if p.Login == "" || p.Password == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: логин, пароль и имя обязательны", ErrValidation)
	}
	if len(p.Roles) == 0 {
		p.Roles = []model.Role{model.RoleStudent}
	}
	if err := policy.ValidateRoleChange(p.Roles); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	// Группа обязательна тогда и только тогда, когда есть роль Student
	if model.HasRole(p.Roles, model.RoleStudent) {
		if p.Group == nil || *p.Group == "" {
			return nil, ErrStudentNeedsGroup
		}
	} else {
		p.Group = nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &model.User{
		Login:        p.Login,
		Name:         p.Name,
		PasswordHash: string(hash),
		Roles:        p.Roles,
		Group:        p.Group,
		IsConfirmed:  false,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	s.logger.Info("Зарегистрирован новый пользователь",
		slog.String("user_id", u.ID),
		slog.String("login", u.Login),
	)
	return u, nil
}

// Login проверяет логин и пароль и выдаёт JWT.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, *model.User, error) {
	u, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.IssueToken(u, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("выдача токена: %w", err)
	}

	s.logger.Info("Вход выполнен", slog.String("user_id", u.ID))
	return token, u, nil
}

// Profile возвращает профиль пользователя по ID.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение профиля: %w", err)
	}
	return u, nil
}
