package signature

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var pdfMIMEs = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

var pdfExtensions = map[string]bool{
	".pdf": true,
}

// TextMIMEs lists the declared types routed to the text parser.
var TextMIMEs = map[string]bool{
	"text/plain":                true,
	"text/markdown":             true,
	"text/x-markdown":           true,
	"application/json":          true,
	"text/json":                 true,
	"text/csv":                  true,
	"application/csv":           true,
	"text/tab-separated-values": true,
	"application/xml":           true,
	"text/xml":                  true,
	"text/html":                 true,
	"application/xhtml+xml":     true,
	"application/yaml":          true,
	"application/x-yaml":        true,
	"text/yaml":                 true,
	"text/x-yaml":               true,
}

// TextExtensions lists the file extensions routed to the text parser.
var TextExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".log":      true,
	".md":       true,
	".markdown": true,
	".json":     true,
	".csv":      true,
	".tsv":      true,
	".xml":      true,
	".html":     true,
	".htm":      true,
	".yaml":     true,
	".yml":      true,
}

// DetectFormat decides which parser family handles a file.
// A detected signature always wins; then declared MIME type and extension
// are matched exactly against the allow-lists; content without any known
// signature defaults to text. Detected non-PDF binaries are rejected.
func DetectFormat(detected Type, declared, filename string) (domain.Format, error) {
	switch detected {
	case TypePDF:
		return domain.FormatPDF, nil
	case TypePNG, TypeJPEG, TypeGIF, TypeZIP, TypeOLE2:
		return domain.FormatUnknown, UnsupportedError(detected, declared)
	}

	d := NormaliseMIME(declared)
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case pdfMIMEs[d] && !TextExtensions[ext]:
		return domain.FormatPDF, nil
	case TextMIMEs[d]:
		return domain.FormatText, nil
	case pdfExtensions[ext]:
		return domain.FormatPDF, nil
	case TextExtensions[ext]:
		return domain.FormatText, nil
	}
	return domain.FormatText, nil
}

// UnsupportedError builds the UNSUPPORTED_FILE_TYPE error for a detected type.
func UnsupportedError(detected Type, declared string) *domain.ProcessingError {
	what := describe(detected)
	msg := fmt.Sprintf("%s files are not supported; upload a PDF or a text document", what)
	detail := fmt.Sprintf("detected=%s declared=%s", detected, NormaliseMIME(declared))
	return &domain.ProcessingError{
		Code:    domain.CodeUnsupportedType,
		Message: msg,
		Detail:  detail,
		Err:     domain.ErrUnsupportedType,
	}
}

// MismatchError builds the SIGNATURE_MISMATCH error for a failed validation.
func MismatchError(res Result) *domain.ProcessingError {
	return &domain.ProcessingError{
		Code:    domain.CodeSignatureMismatch,
		Message: "the file content does not match its declared type",
		Detail:  fmt.Sprintf("%s (detected=%s declared=%s)", res.Message, res.DetectedType, res.DeclaredType),
		Err:     domain.ErrInvalidInput,
	}
}

func describe(t Type) string {
	switch t {
	case TypePNG, TypeJPEG, TypeGIF:
		return "Image (" + string(t) + ")"
	case TypeZIP:
		return "Archive and Office Open XML"
	case TypeOLE2:
		return "Legacy Office"
	case TypeUnknown:
		return "Binary"
	default:
		return strings.ToUpper(string(t))
	}
}
