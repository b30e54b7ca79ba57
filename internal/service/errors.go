// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrForbidden — действие не разрешено ролями пользователя.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrInvalidCredentials — неверный логин или пароль.
	ErrInvalidCredentials = errors.New("неверный логин или пароль")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidStatus — решение по заявке может быть только Approved или Rejected.
	ErrInvalidStatus = errors.New("недопустимый статус решения")
	// ErrStudentNeedsGroup — у пользователя с ролью Student должна быть группа.
	ErrStudentNeedsGroup = errors.New("студенту необходима учебная группа")
)
