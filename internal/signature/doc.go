// Package signature identifies what an uploaded file really is.
//
// Detection works on the leading bytes of the content (magic numbers)
// and never trusts the caller-declared content type on its own:
//
//   - Detect / Validate: magic-byte detection and declared-type checks
//   - ValidatePDF: header, end-of-file and encryption checks for PDFs
//   - Sniff: content-based MIME sniffing to spot unrecognised binaries
//   - DetectFormat: picks the parser family for a file
package signature
