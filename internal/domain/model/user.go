// Пакет model — доменные модели портала заявок.
package model

import "time"

// Role — роль пользователя. Закрытое перечисление,
// один пользователь может иметь несколько ролей одновременно.
type Role string

const (
	// RoleStudent — студент: подаёт заявки, видит только свои.
	RoleStudent Role = "Student"
	// RoleTeacher — преподаватель: просмотр студентов (опционально по группе).
	RoleTeacher Role = "Teacher"
	// RoleDean — деканат: полный доступ к заявкам и пользователям.
	RoleDean Role = "Dean"
)

// ValidRole проверяет, является ли строка допустимой ролью.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleDean:
		return true
	}
	return false
}

// HasRole проверяет наличие роли в наборе.
func HasRole(roles []Role, r Role) bool {
	for _, role := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// User — пользователь портала.
// Хранится в таблице users.
type User struct {
	// ID — UUID пользователя
	ID string
	// Login — уникальный логин
	Login string
	// Name — отображаемое имя
	Name string
	// PasswordHash — bcrypt-хеш пароля
	PasswordHash string
	// Roles — набор ролей (никогда не пустой)
	Roles []Role
	// Group — учебная группа; обязательна тогда и только тогда,
	// когда в наборе ролей есть Student
	Group *string
	// IsConfirmed — подтверждён ли аккаунт деканатом.
	// Неподтверждённый пользователь видит только свой профиль.
	IsConfirmed bool
	// CreatedAt — время регистрации
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
