package text

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

type decoded struct {
	text     string
	encoding string
	warning  string
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Bytes Windows-1252 leaves undefined.
var cp1252Undefined = [256]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

// decode tries UTF-8, UTF-16 (BOM required) and Windows-1252 strictly,
// then falls back to lossy UTF-8 with a warning.
func decode(data []byte) decoded {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		if rest := data[len(bomUTF8):]; utf8.Valid(rest) {
			return decoded{text: string(rest), encoding: "utf-8"}
		}
	case bytes.HasPrefix(data, bomUTF16LE):
		if s, ok := decodeStrict(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data); ok {
			return decoded{text: s, encoding: "utf-16le"}
		}
	case bytes.HasPrefix(data, bomUTF16BE):
		if s, ok := decodeStrict(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data); ok {
			return decoded{text: s, encoding: "utf-16be"}
		}
	case utf8.Valid(data):
		return decoded{text: string(data), encoding: "utf-8"}
	}

	if s, ok := decodeWindows1252(data); ok {
		return decoded{text: s, encoding: "windows-1252"}
	}

	return decoded{
		text:     strings.ToValidUTF8(string(data), "\uFFFD"),
		encoding: "utf-8-lossy",
		warning:  "the file is not valid UTF-8, UTF-16 or Windows-1252; undecodable bytes were replaced",
	}
}

func decodeStrict(enc encoding.Encoding, data []byte) (string, bool) {
	if len(data)%2 != 0 {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

func decodeWindows1252(data []byte) (string, bool) {
	for _, b := range data {
		if cp1252Undefined[b] {
			return "", false
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			return "", false
		}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}
