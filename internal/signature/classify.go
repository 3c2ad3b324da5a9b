package signature

import "github.com/custodia-labs/sercha-docs/internal/core/domain"

// Classification is the combined outcome of the upload checks.
type Classification struct {
	Format    domain.Format
	Signature Result
	Sniffed   Sniffed
}

// Classify validates buf against its declared type, rejects binaries no
// parser understands, and picks the parser family.
// Errors are *domain.ProcessingError with SIGNATURE_MISMATCH or
// UNSUPPORTED_FILE_TYPE codes.
func Classify(buf []byte, declared, filename string) (Classification, error) {
	c := Classification{Signature: Validate(buf, declared)}
	if c.Signature.Validatable && !c.Signature.IsValid {
		return c, MismatchError(c.Signature)
	}

	if c.Signature.DetectedType == TypeUnknown {
		c.Sniffed = Sniff(buf)
		if !c.Sniffed.Textual {
			pe := UnsupportedError(TypeUnknown, declared)
			pe.Detail += " sniffed=" + c.Sniffed.MIME
			return c, pe
		}
	}

	f, err := DetectFormat(c.Signature.DetectedType, declared, filename)
	if err != nil {
		return c, err
	}
	c.Format = f
	return c, nil
}
