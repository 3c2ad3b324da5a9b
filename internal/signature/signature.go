package signature

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
)

// Type is a binary format detected from magic bytes.
type Type string

// Detected types.
const (
	TypeUnknown Type = ""
	TypePDF     Type = "pdf"
	TypePNG     Type = "png"
	TypeJPEG    Type = "jpeg"
	TypeGIF     Type = "gif"
	TypeZIP     Type = "zip"
	TypeOLE2    Type = "ole2"
)

type magic struct {
	typ    Type
	offset int
	prefix []byte
}

// Ordered; the first match wins.
var magics = []magic{
	{TypePDF, 0, []byte("%PDF")},
	{TypePNG, 0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	{TypeJPEG, 0, []byte{0xFF, 0xD8, 0xFF}},
	{TypeGIF, 0, []byte("GIF87a")},
	{TypeGIF, 0, []byte("GIF89a")},
	{TypeZIP, 0, []byte{'P', 'K', 0x03, 0x04}},
	{TypeZIP, 0, []byte{'P', 'K', 0x05, 0x06}},
	{TypeZIP, 0, []byte{'P', 'K', 0x07, 0x08}},
	{TypeOLE2, 0, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
}

// Detect returns the type whose magic bytes prefix buf, or TypeUnknown.
func Detect(buf []byte) Type {
	for _, m := range magics {
		end := m.offset + len(m.prefix)
		if len(buf) >= end && bytes.Equal(buf[m.offset:end], m.prefix) {
			return m.typ
		}
	}
	return TypeUnknown
}

// IsBinary reports whether t is a detected binary (non-text) type.
func (t Type) IsBinary() bool {
	return t != TypeUnknown
}

// Declared MIME types with a known signature.
var declaredSignatures = map[string]Type{
	"application/pdf":    TypePDF,
	"application/x-pdf":  TypePDF,
	"image/png":          TypePNG,
	"image/jpeg":         TypeJPEG,
	"image/jpg":          TypeJPEG,
	"image/pjpeg":        TypeJPEG,
	"image/gif":          TypeGIF,
	"application/zip":    TypeZIP,
	"application/x-zip":  TypeZIP,
	"application/msword": TypeOLE2,

	"application/vnd.ms-excel":      TypeOLE2,
	"application/vnd.ms-powerpoint": TypeOLE2,
	"application/vnd.ms-outlook":    TypeOLE2,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   TypeZIP,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         TypeZIP,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": TypeZIP,
	"application/vnd.oasis.opendocument.text":                                   TypeZIP,
	"application/vnd.oasis.opendocument.spreadsheet":                            TypeZIP,
}

// IsOfficeZIP reports whether a declared MIME type is a ZIP-based office format.
func IsOfficeZIP(declared string) bool {
	d := NormaliseMIME(declared)
	return strings.HasPrefix(d, "application/vnd.openxmlformats-officedocument.") ||
		strings.HasPrefix(d, "application/vnd.oasis.opendocument.")
}

// NormaliseMIME lower-cases a MIME type and strips parameters.
func NormaliseMIME(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = declared[:i]
	}
	return strings.ToLower(strings.TrimSpace(declared))
}

// Result is the outcome of validating content against a declared type.
type Result struct {
	// IsValid is false when the content contradicts the declared type.
	IsValid bool

	// DetectedType is the type found in the leading bytes.
	DetectedType Type

	// DeclaredType is the normalised declared MIME type.
	DeclaredType string

	// Validatable is false when the declared type has no known signature.
	Validatable bool

	// Message explains a failed validation.
	Message string
}

// Validate checks the leading bytes of buf against the declared MIME type.
func Validate(buf []byte, declared string) Result {
	detected := Detect(buf)
	d := NormaliseMIME(declared)
	res := Result{
		IsValid:      true,
		DetectedType: detected,
		DeclaredType: d,
	}

	expected, ok := declaredSignatures[d]
	if !ok {
		return res
	}
	res.Validatable = true

	switch {
	case detected == TypeUnknown:
		res.IsValid = false
		res.Message = fmt.Sprintf("declared as %s but no %s signature was found; the file may be corrupted", d, expected)
	case detected == expected:
	case detected == TypeZIP && IsOfficeZIP(d):
	default:
		res.IsValid = false
		res.Message = fmt.Sprintf("declared as %s but content is %s", d, detected)
	}
	return res
}
