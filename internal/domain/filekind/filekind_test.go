package filekind

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    Kind
	}{
		{
			name:    "PDF по сигнатуре %PDF",
			content: []byte{0x25, 0x50, 0x44, 0x46, 0x2D, 0x31, 0x2E, 0x37},
			want:    PDF,
		},
		{
			name:    "JPEG по сигнатуре FF D8 FF",
			content: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
			want:    JPEG,
		},
		{
			name:    "PNG по сигнатуре 89 50 4E 47",
			content: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			want:    PNG,
		},
		{
			name:    "произвольные байты — unknown",
			content: []byte{0x00, 0x01, 0x02, 0x03},
			want:    Unknown,
		},
		{
			name:    "текстовый файл — unknown",
			content: []byte("hello world"),
			want:    Unknown,
		},
		{
			name:    "обрезанная сигнатура PDF — unknown",
			content: []byte{0x25, 0x50},
			want:    Unknown,
		},
		{
			name:    "пустое содержимое — unknown",
			content: nil,
			want:    Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.content); got != tt.want {
				t.Errorf("Detect() = %q, хотели %q", got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	for _, k := range []Kind{PDF, JPEG, PNG} {
		if !Allowed(k) {
			t.Errorf("Allowed(%q) = false, хотели true", k)
		}
	}
	if Allowed(Unknown) {
		t.Error("Allowed(Unknown) = true, хотели false")
	}
}

func TestExtensionAndMIME(t *testing.T) {
	tests := []struct {
		kind Kind
		ext  string
		mime string
	}{
		{PDF, "pdf", "application/pdf"},
		{JPEG, "jpg", "image/jpeg"},
		{PNG, "png", "image/png"},
		{Unknown, "bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := tt.kind.Extension(); got != tt.ext {
			t.Errorf("%q.Extension() = %q, хотели %q", tt.kind, got, tt.ext)
		}
		if got := tt.kind.MIME(); got != tt.mime {
			t.Errorf("%q.MIME() = %q, хотели %q", tt.kind, got, tt.mime)
		}
	}
}
