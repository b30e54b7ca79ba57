// users.go — управление пользователями: списки, подтверждение аккаунтов,
// роли и группы. Доступ определяется пакетом policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/repository"
)

// UserService — сервис управления пользователями.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService создаёт сервис управления пользователями.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает страницу пользователей.
// Деканат видит всех с произвольными фильтрами; преподаватель — только
// подтверждённых студентов (опционально по группе).
func (s *UserService) List(ctx context.Context, actor policy.Actor, f repository.UserFilter) ([]*model.User, int, error) {
	caps := policy.ForUser(actor, nil)

	switch {
	case caps.Has(policy.CapViewAllUsers):
		// фильтры как запрошены
	case caps.Has(policy.CapViewGroupStudents):
		f.OnlyConfirmed = true
		f.Roles = []model.Role{model.RoleStudent}
	default:
		return nil, 0, ErrForbidden
	}

	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("список пользователей: %w", err)
	}
	return users, total, nil
}

// SetConfirmation подтверждает или снимает подтверждение аккаунта.
// Собственный аккаунт подтвердить нельзя.
func (s *UserService) SetConfirmation(ctx context.Context, actor policy.Actor, userID string, confirmed bool) (*model.User, error) {
	target, err := s.getTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !policy.ForUser(actor, target).Has(policy.CapManageUserConfirmation) {
		return nil, ErrForbidden
	}

	updated, err := s.users.SetConfirmed(ctx, userID, confirmed)
	if err != nil {
		return nil, fmt.Errorf("подтверждение аккаунта: %w", err)
	}

	s.logger.Info("Статус подтверждения изменён",
		slog.String("user_id", userID),
		slog.String("actor_id", actor.UserID),
		slog.Bool("confirmed", confirmed),
	)
	return updated, nil
}

// SetRoles заменяет набор ролей пользователя. Набор не может быть пустым;
// роль Student требует назначенной группы. Собственные роли менять нельзя.
func (s *UserService) SetRoles(ctx context.Context, actor policy.Actor, userID string, roles []model.Role) (*model.User, error) {
	if err := policy.ValidateRoleChange(roles); err != nil {
		if errors.Is(err, policy.ErrEmptyRoles) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	target, err := s.getTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !policy.ForUser(actor, target).Has(policy.CapManageUserRoles) {
		return nil, ErrForbidden
	}

	if model.HasRole(roles, model.RoleStudent) && target.Group == nil {
		return nil, ErrStudentNeedsGroup
	}

	updated, err := s.users.SetRoles(ctx, userID, roles)
	if err != nil {
		return nil, fmt.Errorf("изменение ролей: %w", err)
	}

	s.logger.Info("Роли пользователя изменены",
		slog.String("user_id", userID),
		slog.String("actor_id", actor.UserID),
	)
	return updated, nil
}

// SetGroup меняет учебную группу пользователя.
// Убрать группу у пользователя с ролью Student нельзя.
func (s *UserService) SetGroup(ctx context.Context, actor policy.Actor, userID string, group *string) (*model.User, error) {
	target, err := s.getTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !policy.ForUser(actor, target).Has(policy.CapManageUserGroup) {
		return nil, ErrForbidden
	}

	if group != nil && *group == "" {
		group = nil
	}
	if group == nil && model.HasRole(target.Roles, model.RoleStudent) {
		return nil, ErrStudentNeedsGroup
	}

	updated, err := s.users.SetGroup(ctx, userID, group)
	if err != nil {
		return nil, fmt.Errorf("изменение группы: %w", err)
	}

	s.logger.Info("Группа пользователя изменена",
		slog.String("user_id", userID),
		slog.String("actor_id", actor.UserID),
	)
	return updated, nil
}

func (s *UserService) getTarget(ctx context.Context, userID string) (*model.User, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return target, nil
}
