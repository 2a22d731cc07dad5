package preprocessing

import "fmt"

// Variant names the front-end that turns a log line into model input.
type Variant string

const (
	VariantStructured Variant = "structured"
	VariantContent    Variant = "content"
)

// Normalizer converts one raw log line into the text handed to the
// classifier. ok is false when the line carries nothing to classify.
type Normalizer interface {
	Normalize(line string) (text string, ok bool)
	Variant() Variant
}

// StructuredNormalizer renders the key="value" request fields and their
// attack signals into a fixed sentence. Every line produces a text.
type StructuredNormalizer struct{}

func (StructuredNormalizer) Normalize(line string) (string, bool) {
	fields := ParseFields(line)
	return RenderText(fields, ExtractSignals(fields[FieldURL])), true
}

func (StructuredNormalizer) Variant() Variant { return VariantStructured }

// ContentNormalizer passes the request body from the content field through
// unchanged. Lines without a content field, or with an empty one, are skipped.
type ContentNormalizer struct{}

func (ContentNormalizer) Normalize(line string) (string, bool) {
	content, ok := ExtractContent(line)
	if !ok || content == "" {
		return "", false
	}
	return content, true
}

func (ContentNormalizer) Variant() Variant { return VariantContent }

// NewNormalizer returns the normalizer registered for variant.
func NewNormalizer(variant Variant) (Normalizer, error) {
	switch variant {
	case VariantStructured:
		return StructuredNormalizer{}, nil
	case VariantContent:
		return ContentNormalizer{}, nil
	default:
		return nil, fmt.Errorf("unknown preprocessing variant %q", variant)
	}
}
