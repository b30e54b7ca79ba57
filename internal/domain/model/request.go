package model

import "time"

// Status — статус заявки.
type Status string

const (
	// StatusPending — заявка ожидает решения деканата.
	StatusPending Status = "Pending"
	// StatusApproved — заявка одобрена.
	StatusApproved Status = "Approved"
	// StatusRejected — заявка отклонена.
	StatusRejected Status = "Rejected"
)

// ValidStatus проверяет, является ли строка допустимым статусом.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ConfirmationType — тип заявки. Определяет обязательность
// даты окончания и вложений.
type ConfirmationType string

const (
	// ConfirmationMedical — больничный: dateTo необязательна
	// (справочная), вложения обязательны.
	ConfirmationMedical ConfirmationType = "Medical"
	// ConfirmationFamily — по семейным обстоятельствам: dateTo
	// обязательна, вложения необязательны.
	ConfirmationFamily ConfirmationType = "Family"
	// ConfirmationEducational — учебная: dateTo и вложения
	// обязательны; редактируется только деканатом.
	ConfirmationEducational ConfirmationType = "Educational"
)

// ValidConfirmationType проверяет, является ли строка допустимым типом заявки.
func ValidConfirmationType(t ConfirmationType) bool {
	switch t {
	case ConfirmationMedical, ConfirmationFamily, ConfirmationEducational:
		return true
	}
	return false
}

// Request — заявка на подтверждение пропуска занятий.
// Хранится в таблице requests.
type Request struct {
	// ID — UUID заявки, назначается сервером при создании
	ID string
	// UserID — владелец заявки (студент)
	UserID string
	// OwnerName — отображаемое имя владельца (JOIN с users,
	// заполняется только при выдаче деканату/преподавателю)
	OwnerName string
	// ConfirmationType — тип заявки
	ConfirmationType ConfirmationType
	// DateFrom — дата начала (обязательна)
	DateFrom time.Time
	// DateTo — дата окончания; nil для Medical без указанной даты
	DateTo *time.Time
	// Status — текущий статус. Pending при создании, терминальный
	// после решения деканата, но редактирование возвращает Pending.
	Status Status
	// CreatedAt — время подачи
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}

// Attachment — вложение заявки (PDF или изображение).
// Хранится в таблице attachments; при редактировании заявки
// набор вложений заменяется целиком, не дополняется.
type Attachment struct {
	// ID — UUID вложения
	ID string
	// RequestID — заявка-владелец
	RequestID string
	// Kind — тип содержимого, определённый по сигнатуре (pdf, jpeg, png)
	Kind string
	// Content — сырые байты документа
	Content []byte
	// Position — порядковый номер в заявке
	Position int
	// CreatedAt — время загрузки
	CreatedAt time.Time
}
