package signature

import "github.com/gabriel-vasile/mimetype"

// Sniffed is the content-sniffed MIME classification of a buffer.
type Sniffed struct {
	// MIME is the detected MIME type without parameters.
	MIME string

	// Textual is true when the content is text/plain or a descendant.
	Textual bool
}

// Sniff classifies buf by content, independent of any declared type.
func Sniff(buf []byte) Sniffed {
	mt := mimetype.Detect(buf)
	s := Sniffed{MIME: NormaliseMIME(mt.String())}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			s.Textual = true
			break
		}
	}
	return s
}
