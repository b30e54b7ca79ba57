// Пакет policy — вычисление набора разрешённых действий по ролям
// пользователя и состоянию целевой сущности. Единственный источник
// истины для проверок доступа: ни обработчики, ни клиент не сравнивают
// строки ролей напрямую. Функции чистые и пересчитываются на каждый
// запрос — набор не кэшируется между сменами ролей.
//
// Сервер остаётся авторитетным исполнителем: клиентская проверка —
// удобство интерфейса, а не граница безопасности.
package policy

import (
	"errors"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// Capability — одно разрешённое действие.
type Capability string

const (
	// CapViewOwnRequests — просмотр собственных заявок (студент).
	CapViewOwnRequests Capability = "ViewOwnRequests"
	// CapViewAllRequests — просмотр всех заявок (деканат).
	CapViewAllRequests Capability = "ViewAllRequests"
	// CapViewGroupStudents — просмотр студентов, опционально по группе (преподаватель).
	CapViewGroupStudents Capability = "ViewGroupStudents"
	// CapViewAllUsers — просмотр всех пользователей (деканат).
	CapViewAllUsers Capability = "ViewAllUsers"
	// CapCreateRequest — подача заявки.
	CapCreateRequest Capability = "CreateRequest"
	// CapEditRequest — редактирование заявки (возвращает её в Pending).
	CapEditRequest Capability = "EditRequest"
	// CapDecideRequest — решение по заявке: одобрить или отклонить.
	CapDecideRequest Capability = "DecideRequest"
	// CapManageUserRoles — изменение набора ролей пользователя.
	CapManageUserRoles Capability = "ManageUserRoles"
	// CapManageUserGroup — изменение учебной группы пользователя.
	CapManageUserGroup Capability = "ManageUserGroup"
	// CapManageUserConfirmation — подтверждение/снятие подтверждения аккаунта.
	CapManageUserConfirmation Capability = "ManageUserConfirmation"
	// CapExportApprovedRequests — выгрузка одобренных заявок.
	CapExportApprovedRequests Capability = "ExportApprovedRequests"
)

// ErrEmptyRoles — попытка оставить пользователя без единой роли.
// Отклоняется локально, до обращения к серверу.
var ErrEmptyRoles = errors.New("нельзя убрать все роли у пользователя")

// Actor — действующий пользователь: идентификатор, набор ролей и
// признак подтверждения аккаунта. Передаётся явно (session context),
// а не читается из глобального состояния.
type Actor struct {
	// UserID — идентификатор действующего пользователя
	UserID string
	// Roles — его роли
	Roles []model.Role
	// IsConfirmed — подтверждён ли аккаунт деканатом
	IsConfirmed bool
}

// Set — набор разрешённых действий.
type Set map[Capability]struct{}

// Has проверяет наличие действия в наборе.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func (s Set) add(caps ...Capability) {
	for _, c := range caps {
		s[c] = struct{}{}
	}
}

// ForRequest вычисляет набор действий актора над заявкой subject.
// subject == nil — общий набор без привязки к конкретной заявке.
//
// Правила разрешаются объединением по ролям, более привилегированная
// роль выигрывает при пересечении:
//   - Student: просмотр своих заявок и создание; редактирование своей
//     заявки любого статуса (повторная подача возвращает её на
//     рассмотрение), кроме типа Educational — его правит только деканат;
//   - Teacher: только просмотр студентов;
//   - Dean: всё управление заявками и пользователями, включая
//     редактирование чужих заявок и Educational.
//
// Решение по собственной заявке запрещено любой роли: деканат не
// одобряет сам себя.
//
// Неподтверждённый аккаунт не получает ни одного действия независимо
// от ролей — до решения деканата доступен только собственный профиль.
func ForRequest(actor Actor, subject *model.Request) Set {
	caps := make(Set)

	if !actor.IsConfirmed {
		return caps
	}

	if model.HasRole(actor.Roles, model.RoleStudent) {
		caps.add(CapViewOwnRequests, CapCreateRequest)
		if subject != nil &&
			subject.UserID == actor.UserID &&
			subject.ConfirmationType != model.ConfirmationEducational {
			caps.add(CapEditRequest)
		}
	}

	if model.HasRole(actor.Roles, model.RoleTeacher) {
		caps.add(CapViewGroupStudents)
	}

	if model.HasRole(actor.Roles, model.RoleDean) {
		caps.add(
			CapViewAllRequests,
			CapViewAllUsers,
			CapViewGroupStudents,
			CapDecideRequest,
			CapManageUserRoles,
			CapManageUserGroup,
			CapManageUserConfirmation,
			CapExportApprovedRequests,
			CapEditRequest,
		)
	}

	// Самоуправление запрещено: над собственной заявкой нет ни решения,
	// ни управления аккаунтом её владельца (это сам актор).
	if subject != nil && subject.UserID == actor.UserID {
		delete(caps, CapDecideRequest)
		delete(caps, CapManageUserRoles)
		delete(caps, CapManageUserConfirmation)
	}

	return caps
}

// ForUser вычисляет набор действий актора над аккаунтом target.
// target == nil — общий набор. Изменение ролей, подтверждения и решение
// заявок над собственным аккаунтом запрещены независимо от ролей —
// ни самоповышения привилегий, ни самоблокировки.
func ForUser(actor Actor, target *model.User) Set {
	caps := ForRequest(actor, nil)

	if target != nil && target.ID == actor.UserID {
		delete(caps, CapManageUserRoles)
		delete(caps, CapManageUserConfirmation)
		delete(caps, CapDecideRequest)
	}

	return caps
}

// ValidateRoleChange проверяет новый набор ролей перед отправкой:
// набор не пуст и все роли известны. Инвариант «roles никогда не пуст»
// защищается здесь, не дожидаясь ответа сервера.
func ValidateRoleChange(roles []model.Role) error {
	if len(roles) == 0 {
		return ErrEmptyRoles
	}
	for _, r := range roles {
		if !model.ValidRole(r) {
			return errors.New("неизвестная роль: " + string(r))
		}
	}
	return nil
}
