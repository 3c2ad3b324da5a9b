package signature

import (
	"bytes"
	"regexp"
)

const (
	pdfEOFWindow          = 1024
	pdfEncryptLeadWindow  = 16 * 1024
	pdfEncryptTrailWindow = 4 * 1024
)

var pdfVersionRe = regexp.MustCompile(`^%PDF-(\d\.\d)`)

// PDFResult is the outcome of PDF structural validation.
type PDFResult struct {
	IsValid   bool
	Version   string
	Encrypted bool
	Message   string
}

// ValidatePDF checks the header, the end-of-file marker and the
// encryption dictionary reference of a PDF buffer.
// Encryption is reported even when the file is otherwise valid.
func ValidatePDF(buf []byte) PDFResult {
	m := pdfVersionRe.FindSubmatch(head(buf, 16))
	if m == nil {
		return PDFResult{Message: "missing %PDF- header; this is not a PDF file"}
	}
	res := PDFResult{IsValid: true, Version: string(m[1])}

	if bytes.Contains(head(buf, pdfEncryptLeadWindow), []byte("/Encrypt")) ||
		bytes.Contains(tail(buf, pdfEncryptTrailWindow), []byte("/Encrypt")) {
		res.Encrypted = true
	}

	if !bytes.Contains(tail(buf, pdfEOFWindow), []byte("%%EOF")) {
		res.IsValid = false
		res.Message = "missing %%EOF marker; the PDF appears truncated or corrupted"
		return res
	}
	if res.Encrypted {
		res.Message = "the PDF is encrypted"
	}
	return res
}

func head(buf []byte, n int) []byte {
	if len(buf) < n {
		return buf
	}
	return buf[:n]
}

func tail(buf []byte, n int) []byte {
	if len(buf) < n {
		return buf
	}
	return buf[len(buf)-n:]
}
