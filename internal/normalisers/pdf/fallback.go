package pdf

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/hex"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Caps bounding the fallback scan on adversarial input.
const (
	maxStreams      = 5000
	maxTextObjects  = 20000
	maxOperators    = 200000
	maxInflateBytes = 64 << 20
	maxPageObjects  = 100000
)

var (
	streamRe  = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\n?endstream`)
	textObjRe = regexp.MustCompile(`(?s)\bBT\b(.*?)\bET\b`)

	literal = `\(((?:[^()\\]|\\.|\((?:[^()\\]|\\.)*\))*)\)`
	hexStr  = `<([0-9A-Fa-f\s]*)>`

	// Text-showing and text-positioning operators inside a BT/ET block.
	opRe = regexp.MustCompile(`(?s)` +
		literal + `\s*(Tj|'|")` +
		`|` + hexStr + `\s*Tj` +
		`|\[((?:[^\[\]\\]|\\.)*)\]\s*TJ` +
		`|(?:^|\s)(T\*|TD|Td|Tm)(?:\s|$)`)

	arrayItemRe = regexp.MustCompile(literal + `|` + hexStr + `|(-?\d+(?:\.\d+)?)`)
)

type fallbackResult struct {
	text        string
	textObjects int
}

// extractFallback scans raw bytes and Flate-decoded streams for text
// objects and decodes the strings shown by Tj, TJ, ' and ".
func extractFallback(ctx context.Context, data []byte) fallbackResult {
	sources := [][]byte{data}
	budget := maxInflateBytes
	for i, m := range streamRe.FindAllSubmatchIndex(data, maxStreams) {
		if i%64 == 0 && ctx.Err() != nil {
			break
		}
		if budget <= 0 {
			break
		}
		out, ok := inflate(data[m[2]:m[3]], budget)
		if ok {
			budget -= len(out)
			sources = append(sources, out)
		}
	}

	var b strings.Builder
	res := fallbackResult{}
	ops := 0
	for _, src := range sources {
		for _, obj := range textObjRe.FindAllSubmatch(src, maxTextObjects-res.textObjects) {
			if ctx.Err() != nil {
				res.text = b.String()
				return res
			}
			res.textObjects++
			ops += decodeTextObject(&b, obj[1], maxOperators-ops)
			b.WriteByte('\n')
			if res.textObjects >= maxTextObjects || ops >= maxOperators {
				break
			}
		}
		if res.textObjects >= maxTextObjects || ops >= maxOperators {
			break
		}
	}
	res.text = b.String()
	return res
}

func inflate(stream []byte, limit int) ([]byte, bool) {
	zr, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return nil, false
	}
	defer zr.Close()
	// A checksum error after a complete stream still leaves usable text.
	out, _ := io.ReadAll(io.LimitReader(zr, int64(limit)))
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func decodeTextObject(b *strings.Builder, body []byte, budget int) int {
	if budget <= 0 {
		return 0
	}
	matches := opRe.FindAllSubmatch(body, budget)
	for _, m := range matches {
		switch {
		case m[2] != nil:
			if op := string(m[2]); op == "'" || op == `"` {
				b.WriteByte('\n')
			}
			b.WriteString(decodeLiteral(m[1]))
		case m[3] != nil:
			b.WriteString(decodeHex(m[3]))
		case m[4] != nil:
			decodeArray(b, m[4])
		case m[5] != nil:
			if string(m[5]) == "Td" {
				writeSpace(b)
			} else {
				b.WriteByte('\n')
			}
		}
	}
	return len(matches)
}

func decodeArray(b *strings.Builder, arr []byte) {
	for _, item := range arrayItemRe.FindAllSubmatch(arr, -1) {
		switch {
		case item[1] != nil:
			b.WriteString(decodeLiteral(item[1]))
		case item[2] != nil:
			b.WriteString(decodeHex(item[2]))
		case item[3] != nil:
			// Large negative kerning separates words.
			if n, err := strconv.ParseFloat(string(item[3]), 64); err == nil && n < -200 {
				writeSpace(b)
			}
		}
	}
}

func writeSpace(b *strings.Builder) {
	s := b.String()
	if s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		b.WriteByte(' ')
	}
}

// decodeLiteral decodes the escapes of a PDF literal string.
func decodeLiteral(s []byte) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteRune(latin1(c))
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '(', ')', '\\':
			b.WriteByte(e)
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			if e >= '0' && e <= '7' {
				n := 0
				j := i
				for ; j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7'; j++ {
					n = n*8 + int(s[j]-'0')
				}
				i = j - 1
				b.WriteRune(latin1(byte(n & 0xFF)))
			} else {
				b.WriteByte(e)
			}
		}
	}
	return b.String()
}

// decodeHex decodes a hex string. Two-byte big-endian text is detected
// by a leading BOM or by zero high bytes.
func decodeHex(h []byte) string {
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, string(h))
	if len(clean)%2 == 1 {
		clean += "0"
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return ""
	}
	if utf16BE(raw) {
		if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
			raw = raw[2:]
		}
		var b strings.Builder
		for i := 0; i+1 < len(raw); i += 2 {
			b.WriteRune(rune(raw[i])<<8 | rune(raw[i+1]))
		}
		return b.String()
	}
	var b strings.Builder
	for _, c := range raw {
		b.WriteRune(latin1(c))
	}
	return b.String()
}

func utf16BE(raw []byte) bool {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return true
	}
	if len(raw) < 2 || len(raw)%2 != 0 {
		return false
	}
	for i := 0; i < len(raw); i += 2 {
		if raw[i] != 0 {
			return false
		}
	}
	return true
}

func latin1(c byte) rune {
	return rune(c)
}
