package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testPDF struct {
	pages    []string
	info     string
	compress bool
	footers  bool
}

func escapeLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// build writes a minimal PDF with one Helvetica text line per page,
// optionally a "Page N" footer, and a correct xref table.
func (p testPDF) build(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) int {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
		return len(offsets)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(p.pages))
	for i := range p.pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(p.pages)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range p.pages {
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))

		content := fmt.Sprintf("BT /F1 12 Tf 14 TL 72 712 Td (%s) Tj ET", escapeLiteral(text))
		if p.footers {
			content = fmt.Sprintf("BT /F1 12 Tf 14 TL 72 712 Td (%s) Tj T* (Page %d) Tj ET", escapeLiteral(text), i+1)
		}
		if p.compress {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			_, err := zw.Write([]byte(content))
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			writeObj(fmt.Sprintf("<< /Length %d /Filter /FlateDecode >>\nstream\n%s\nendstream", z.Len(), z.String()))
		} else {
			writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
		}
	}

	infoRef := ""
	if p.info != "" {
		infoRef = fmt.Sprintf(" /Info %d 0 R", writeObj(p.info))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, infoRef, xref)
	return buf.Bytes()
}
