package request

import (
	"testing"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// Валидные байты вложений для тестов.
var (
	pdfBytes  = []byte{0x25, 0x50, 0x44, 0x46, 0x2D, 0x31, 0x2E, 0x34}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}
	junkBytes = []byte{0xDE, 0xAD, 0xBE, 0xEF}
)

func TestValidateDraft_Medical(t *testing.T) {
	// Для Medical дата окончания необязательна и порядок дат не проверяется.
	tests := []struct {
		name   string
		dateTo string
	}{
		{name: "без даты окончания", dateTo: ""},
		{name: "дата окончания раньше даты начала", dateTo: "2024-01-01"},
		{name: "дата окончания позже даты начала", dateTo: "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Draft{
				ConfirmationType: model.ConfirmationMedical,
				DateFrom:         "2024-02-01",
				DateTo:           tt.dateTo,
				Files:            [][]byte{pdfBytes},
			}
			if err := ValidateDraft(d, 0); err != nil {
				t.Errorf("ValidateDraft() = %v, хотели nil", err)
			}
		})
	}
}

func TestValidateDraft_DateToRequired(t *testing.T) {
	for _, ct := range []model.ConfirmationType{model.ConfirmationFamily, model.ConfirmationEducational} {
		t.Run(string(ct), func(t *testing.T) {
			d := Draft{
				ConfirmationType: ct,
				DateFrom:         "2024-02-01",
				Files:            [][]byte{pdfBytes},
			}
			err := ValidateDraft(d, 0)
			if err == nil {
				t.Fatal("ValidateDraft() = nil, хотели ошибку по dateTo")
			}
			if err.Field != "dateTo" {
				t.Errorf("Field = %q, хотели dateTo", err.Field)
			}
		})
	}
}

func TestValidateDraft_AttachmentsRequired(t *testing.T) {
	for _, ct := range []model.ConfirmationType{model.ConfirmationMedical, model.ConfirmationEducational} {
		t.Run(string(ct), func(t *testing.T) {
			d := Draft{
				ConfirmationType: ct,
				DateFrom:         "2024-02-01",
				DateTo:           "2024-02-10",
			}
			err := ValidateDraft(d, 0)
			if err == nil {
				t.Fatal("ValidateDraft() без вложений = nil, хотели ошибку по files")
			}
			if err.Field != "files" {
				t.Errorf("Field = %q, хотели files", err.Field)
			}

			// Одно валидное вложение делает черновик корректным.
			d.Files = [][]byte{jpegBytes}
			if err := ValidateDraft(d, 0); err != nil {
				t.Errorf("ValidateDraft() с вложением = %v, хотели nil", err)
			}

			// Вложения, уже сохранённые на сервере, тоже считаются.
			d.Files = nil
			if err := ValidateDraft(d, 1); err != nil {
				t.Errorf("ValidateDraft() с existing=1 = %v, хотели nil", err)
			}
		})
	}
}

func TestValidateDraft_FamilyAttachmentsOptional(t *testing.T) {
	d := Draft{
		ConfirmationType: model.ConfirmationFamily,
		DateFrom:         "2024-02-01",
		DateTo:           "2024-02-10",
	}
	if err := ValidateDraft(d, 0); err != nil {
		t.Errorf("ValidateDraft() = %v, хотели nil (Family без вложений)", err)
	}
}

func TestValidateDraft_TooManyAttachments(t *testing.T) {
	files := make([][]byte, MaxAttachments+1)
	for i := range files {
		files[i] = pngBytes
	}
	d := Draft{
		ConfirmationType: model.ConfirmationMedical,
		DateFrom:         "2024-02-01",
		Files:            files,
	}
	err := ValidateDraft(d, 0)
	if err == nil || err.Field != "files" {
		t.Errorf("ValidateDraft() = %v, хотели ошибку по files", err)
	}
}

func TestValidateDraft_UnknownKindRejectsBatch(t *testing.T) {
	// Один нераспознанный файл отклоняет весь пакет, частичного приёма нет.
	d := Draft{
		ConfirmationType: model.ConfirmationMedical,
		DateFrom:         "2024-02-01",
		Files:            [][]byte{pdfBytes, junkBytes, pngBytes},
	}
	err := ValidateDraft(d, 0)
	if err == nil || err.Field != "files" {
		t.Errorf("ValidateDraft() = %v, хотели ошибку по files", err)
	}
}

func TestValidateDraft_DateOrder(t *testing.T) {
	d := Draft{
		ConfirmationType: model.ConfirmationFamily,
		DateFrom:         "2024-02-01",
		DateTo:           "2024-01-30",
	}
	err := ValidateDraft(d, 0)
	if err == nil {
		t.Fatal("ValidateDraft() = nil, хотели ошибку порядка дат")
	}
	if err.Field != "dateFrom" {
		t.Errorf("Field = %q, хотели dateFrom", err.Field)
	}

	// Равные даты допустимы.
	d.DateTo = "2024-02-01"
	if err := ValidateDraft(d, 0); err != nil {
		t.Errorf("ValidateDraft() с равными датами = %v, хотели nil", err)
	}
}

func TestValidateDraft_MalformedDateTo(t *testing.T) {
	// Непустая дата окончания должна разбираться для любого типа,
	// включая Medical: ошибка привязывается к полю dateTo, а не
	// всплывает позже без указания поля.
	for _, ct := range []model.ConfirmationType{
		model.ConfirmationMedical,
		model.ConfirmationFamily,
		model.ConfirmationEducational,
	} {
		t.Run(string(ct), func(t *testing.T) {
			d := Draft{
				ConfirmationType: ct,
				DateFrom:         "2024-02-01",
				DateTo:           "не-дата",
				Files:            [][]byte{pdfBytes},
			}
			err := ValidateDraft(d, 0)
			if err == nil {
				t.Fatal("ValidateDraft() = nil, хотели ошибку по dateTo")
			}
			if err.Field != "dateTo" {
				t.Errorf("Field = %q, хотели dateTo", err.Field)
			}
		})
	}
}

func TestValidateDraft_UnknownType(t *testing.T) {
	d := Draft{
		ConfirmationType: "Vacation",
		DateFrom:         "2024-02-01",
	}
	err := ValidateDraft(d, 0)
	if err == nil || err.Field != "confirmationType" {
		t.Errorf("ValidateDraft() = %v, хотели ошибку по confirmationType", err)
	}
}

func TestValidateDraft_MissingDateFrom(t *testing.T) {
	d := Draft{
		ConfirmationType: model.ConfirmationMedical,
		Files:            [][]byte{pdfBytes},
	}
	err := ValidateDraft(d, 0)
	if err == nil || err.Field != "dateFrom" {
		t.Errorf("ValidateDraft() = %v, хотели ошибку по dateFrom", err)
	}
}

func TestValidateDraft_ReplacementDiscardsExisting(t *testing.T) {
	// Новые файлы заменяют старый набор целиком: existing не спасает
	// от превышения лимита и не складывается с новыми.
	files := make([][]byte, MaxAttachments)
	for i := range files {
		files[i] = jpegBytes
	}
	d := Draft{
		ConfirmationType: model.ConfirmationMedical,
		DateFrom:         "2024-02-01",
		Files:            files,
	}
	// 5 новых + 3 существующих: после замены останется 5 — валидно.
	if err := ValidateDraft(d, 3); err != nil {
		t.Errorf("ValidateDraft() = %v, хотели nil (замена набора)", err)
	}
}
