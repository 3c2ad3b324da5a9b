package text

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// splitJSON emits one section per array element or top-level object key,
// pretty-printed in source order. Scalars form a single section.
func splitJSON(text string) ([]section, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var out []section
	switch tok {
	case json.Delim('['):
		for i := 1; dec.More(); i++ {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("decode element %d: %w", i, err)
			}
			out = append(out, section{header: fmt.Sprintf("item %d", i), content: indentJSON(raw, "")})
		}
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read key: %w", err)
			}
			key, _ := keyTok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("decode %q: %w", key, err)
			}
			quoted, _ := json.Marshal(key)
			content := "{\n  " + string(quoted) + ": " + indentJSON(raw, "  ") + "\n}"
			out = append(out, section{header: key, content: content})
		}
	default:
		if !json.Valid([]byte(text)) {
			return nil, errors.New("invalid json")
		}
		return []section{{content: strings.TrimSpace(text)}}, nil
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return out, nil
}

func indentJSON(raw json.RawMessage, prefix string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, prefix, "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// splitCSV repeats the header row on every section, followed by a fixed
// group of data rows.
func splitCSV(text, filename string, rowsPerPage int) ([]section, error) {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultCSVRowsPerPage
	}
	comma := ','
	if strings.EqualFold(filepath.Ext(filename), ".tsv") {
		comma = '\t'
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header, rows := records[0], records[1:]
	if len(rows) == 0 {
		content, err := renderCSV(comma, header, nil)
		if err != nil {
			return nil, err
		}
		return []section{{content: content}}, nil
	}

	var out []section
	for start := 0; start < len(rows); start += rowsPerPage {
		end := min(start+rowsPerPage, len(rows))
		content, err := renderCSV(comma, header, rows[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, section{
			header:  fmt.Sprintf("rows %d-%d", start+1, end),
			content: content,
		})
	}
	return out, nil
}

func renderCSV(comma rune, header []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}

// splitYAML emits one section per top-level mapping key or sequence item,
// across every document in the stream.
func splitYAML(text string) ([]section, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var out []section
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read yaml: %w", err)
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
			continue
		}
		sections, err := yamlSections(doc.Content[0])
		if err != nil {
			return nil, err
		}
		out = append(out, sections...)
	}
	return out, nil
}

func yamlSections(root *yaml.Node) ([]section, error) {
	var out []section
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, val := root.Content[i], root.Content[i+1]
			content, err := renderYAML(&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{key, val}})
			if err != nil {
				return nil, err
			}
			out = append(out, section{header: key.Value, content: content})
		}
	case yaml.SequenceNode:
		for i, item := range root.Content {
			content, err := renderYAML(&yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{item}})
			if err != nil {
				return nil, err
			}
			out = append(out, section{header: fmt.Sprintf("item %d", i+1), content: content})
		}
	default:
		content, err := renderYAML(root)
		if err != nil {
			return nil, err
		}
		out = append(out, section{content: content})
	}
	return out, nil
}

func renderYAML(n *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return "", fmt.Errorf("write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("write yaml: %w", err)
	}
	return buf.String(), nil
}
