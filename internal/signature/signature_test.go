package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
	zipBytes  = []byte{'P', 'K', 0x03, 0x04, 0x14, 0x00}
	ole2Bytes = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want Type
	}{
		{"pdf", pdfBytes, TypePDF},
		{"png", pngBytes, TypePNG},
		{"jpeg", jpegBytes, TypeJPEG},
		{"gif87a", []byte("GIF87a...."), TypeGIF},
		{"gif89a", []byte("GIF89a...."), TypeGIF},
		{"zip", zipBytes, TypeZIP},
		{"empty zip", []byte{'P', 'K', 0x05, 0x06}, TypeZIP},
		{"ole2", ole2Bytes, TypeOLE2},
		{"text", []byte("hello world"), TypeUnknown},
		{"empty", nil, TypeUnknown},
		{"short prefix", []byte{0x89, 'P'}, TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.buf))
		})
	}
}

func TestValidate_PDFDetectedRegardlessOfDeclared(t *testing.T) {
	for _, declared := range []string{"", "text/plain", "application/octet-stream", "application/pdf"} {
		res := Validate([]byte{0x25, 0x50, 0x44, 0x46, '-', '1', '.', '7'}, declared)
		assert.Equal(t, TypePDF, res.DetectedType, "declared %q", declared)
	}
}

func TestValidate_JPEGDeclaredAsPDF(t *testing.T) {
	res := Validate(jpegBytes, "application/pdf")

	assert.False(t, res.IsValid)
	assert.True(t, res.Validatable)
	assert.Equal(t, TypeJPEG, res.DetectedType)
	assert.Equal(t, "application/pdf", res.DeclaredType)
	assert.NotEmpty(t, res.Message)
}

func TestValidate_Policy(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		declared    string
		valid       bool
		validatable bool
	}{
		{"unmapped declared type skips validation", jpegBytes, "text/plain", true, false},
		{"empty declared type skips validation", zipBytes, "", true, false},
		{"matching signature", pngBytes, "image/png", true, true},
		{"declared with parameters", pdfBytes, "Application/PDF; charset=binary", true, true},
		{"docx is a zip", zipBytes, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true, true},
		{"xlsx is a zip", zipBytes, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true, true},
		{"legacy word is ole2", ole2Bytes, "application/msword", true, true},
		{"docx declared but ole2 content", ole2Bytes, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false, true},
		{"pdf declared but no signature", []byte("just text"), "application/pdf", false, true},
		{"png declared but empty", nil, "image/png", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.buf, tt.declared)
			assert.Equal(t, tt.valid, res.IsValid)
			assert.Equal(t, tt.validatable, res.Validatable)
			if !tt.valid {
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "text/plain", NormaliseMIME("Text/Plain; charset=utf-8"))
	assert.Equal(t, "", NormaliseMIME("  "))
	assert.Equal(t, "application/json", NormaliseMIME("application/json"))
}

func TestSniff(t *testing.T) {
	assert.True(t, Sniff([]byte("plain old text\nwith lines\n")).Textual)
	assert.True(t, Sniff([]byte(`{"a": 1}`)).Textual)
	assert.False(t, Sniff([]byte{0x00, 0x01, 0x02, 0x03, 0xFE, 0x00, 0x00, 0x07}).Textual)
}
