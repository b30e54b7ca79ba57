// Пакет filekind — определение типа документа по сигнатуре содержимого.
// Хранилище отдаёт сырые байты без достоверного MIME-типа, поэтому тип
// восстанавливается по magic numbers как при валидации загрузки, так и
// при выдаче сохранённого вложения на скачивание. Таблица сигнатур
// фиксирована контрактом с уже сохранёнными документами.
package filekind

import "bytes"

// Kind — тип содержимого документа.
type Kind string

const (
	// PDF — документ PDF.
	PDF Kind = "pdf"
	// JPEG — изображение JPEG.
	JPEG Kind = "jpeg"
	// PNG — изображение PNG.
	PNG Kind = "png"
	// Unknown — сигнатура не распознана; такие вложения всегда отклоняются.
	Unknown Kind = "unknown"
)

// Сигнатуры форматов (первые байты файла).
var (
	pdfSignature  = []byte{0x25, 0x50, 0x44, 0x46}
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// Detect определяет тип документа по первым байтам содержимого.
// Возвращает Unknown, если ни одна сигнатура не совпала.
func Detect(content []byte) Kind {
	switch {
	case bytes.HasPrefix(content, pdfSignature):
		return PDF
	case bytes.HasPrefix(content, jpegSignature):
		return JPEG
	case bytes.HasPrefix(content, pngSignature):
		return PNG
	}
	return Unknown
}

// Allowed сообщает, допустим ли тип для вложения заявки.
func Allowed(k Kind) bool {
	return k == PDF || k == JPEG || k == PNG
}

// Extension возвращает расширение файла для скачивания (без точки).
// Для Unknown возвращает "bin".
func (k Kind) Extension() string {
	switch k {
	case PDF:
		return "pdf"
	case JPEG:
		return "jpg"
	case PNG:
		return "png"
	}
	return "bin"
}

// MIME возвращает MIME-тип для заголовка Content-Type при скачивании.
func (k Kind) MIME() string {
	switch k {
	case PDF:
		return "application/pdf"
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	}
	return "application/octet-stream"
}
