// Package normalisers turns raw document bytes into sanitised pages.
//
// Each sub-package implements driven.Parser for one format family:
//
//   - pdf: structural page-tree walk with a text-operator fallback
//   - text: plain, markdown, JSON, CSV, XML/HTML and YAML content
//
// This package holds the Registry that dispatches by format and the text
// helpers (sanitising, counting, language guessing) the parsers share.
package normalisers
