// Пакет request — правила жизненного цикла заявки и валидация черновика.
// Чистые функции без побочных эффектов: вызываются клиентом до отправки
// на сервер (fail fast) и сервером при приёме create/update.
package request

import (
	"fmt"
	"time"

	"github.com/buzzilka/team-development/internal/domain/filekind"
	"github.com/buzzilka/team-development/internal/domain/model"
)

// MaxAttachments — максимум вложений в одной заявке.
const MaxAttachments = 5

// DateLayout — формат дат заявки (ISO, календарная дата без времени).
const DateLayout = "2006-01-02"

// Draft — черновик заявки перед отправкой.
type Draft struct {
	// ConfirmationType — тип заявки
	ConfirmationType model.ConfirmationType
	// DateFrom — дата начала, строка формата DateLayout
	DateFrom string
	// DateTo — дата окончания; пустая строка — не указана
	DateTo string
	// Files — содержимое новых вложений
	Files [][]byte
}

// FieldError — ошибка валидации, привязанная к полю черновика.
// Первая нарушенная проверка выигрывает, возвращается ровно одна ошибка.
type FieldError struct {
	// Field — имя поля (confirmationType, dateFrom, dateTo, files)
	Field string
	// Reason — человекочитаемая причина
	Reason string
}

// Error реализует интерфейс error.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RequiresDateTo сообщает, обязательна ли дата окончания для типа заявки.
func RequiresDateTo(t model.ConfirmationType) bool {
	return t == model.ConfirmationFamily || t == model.ConfirmationEducational
}

// RequiresAttachment сообщает, обязательно ли хотя бы одно вложение.
func RequiresAttachment(t model.ConfirmationType) bool {
	return t == model.ConfirmationMedical || t == model.ConfirmationEducational
}

// ValidateDraft проверяет черновик заявки.
// existingAttachments — количество вложений, уже сохранённых на сервере
// (0 при создании; при редактировании без новых файлов старый набор
// сохраняется, при наличии новых — заменяется целиком).
// Возвращает nil, если черновик корректен, иначе первую нарушенную проверку.
//
// Порядок проверок фиксирован:
//  1. тип заявки известен;
//  2. дата начала присутствует и разбирается;
//  3. для Family/Educational присутствует дата окончания;
//  4. для Medical/Educational суммарно есть хотя бы одно вложение;
//  5. суммарно не больше MaxAttachments вложений;
//  6. каждое новое вложение — pdf/jpeg/png по сигнатуре (пакет целиком);
//  7. непустая дата окончания разбирается (для любого типа);
//  8. для не-Medical при обеих датах dateFrom <= dateTo.
func ValidateDraft(d Draft, existingAttachments int) *FieldError {
	if !model.ValidConfirmationType(d.ConfirmationType) {
		return &FieldError{Field: "confirmationType", Reason: "неизвестный тип заявки"}
	}

	if d.DateFrom == "" {
		return &FieldError{Field: "dateFrom", Reason: "введите дату начала"}
	}
	dateFrom, err := time.Parse(DateLayout, d.DateFrom)
	if err != nil {
		return &FieldError{Field: "dateFrom", Reason: "некорректная дата начала"}
	}

	if RequiresDateTo(d.ConfirmationType) && d.DateTo == "" {
		return &FieldError{Field: "dateTo", Reason: "введите дату окончания"}
	}

	total := len(d.Files) + existingAttachments
	// При новых файлах набор заменяется целиком — старые не считаются.
	if len(d.Files) > 0 {
		total = len(d.Files)
	}

	if RequiresAttachment(d.ConfirmationType) && total == 0 {
		return &FieldError{Field: "files", Reason: "прикрепите хотя бы один файл"}
	}
	if total > MaxAttachments {
		return &FieldError{
			Field:  "files",
			Reason: fmt.Sprintf("нельзя прикрепить больше %d файлов", MaxAttachments),
		}
	}

	for _, content := range d.Files {
		if !filekind.Allowed(filekind.Detect(content)) {
			return &FieldError{Field: "files", Reason: "можно прикрепить только PDF или изображение"}
		}
	}

	if d.DateTo != "" {
		dateTo, err := time.Parse(DateLayout, d.DateTo)
		if err != nil {
			return &FieldError{Field: "dateTo", Reason: "некорректная дата окончания"}
		}
		// Для Medical открытая дата окончания допустима и порядок не проверяется.
		if d.ConfirmationType != model.ConfirmationMedical && dateFrom.After(dateTo) {
			return &FieldError{Field: "dateFrom", Reason: "дата начала не может быть позже даты окончания"}
		}
	}

	return nil
}
