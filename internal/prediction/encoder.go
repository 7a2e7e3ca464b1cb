package prediction

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/models"
)

// LabelEncoder maps a category to its index in Classes, the fitted vocabulary.
type LabelEncoder struct {
	Classes []string

	index map[string]int
}

// NewLabelEncoder builds an encoder over the fitted classes. Duplicates are rejected.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate class %q", c)
		}
		index[c] = i
	}
	return &LabelEncoder{Classes: append([]string(nil), classes...), index: index}, nil
}

// Transform returns the integer code of value.
func (e *LabelEncoder) Transform(value string) (int, bool) {
	code, ok := e.index[value]
	return code, ok
}

// EncoderSet holds one encoder per categorical column.
type EncoderSet map[string]*LabelEncoder

// LoadEncoders reads {"<column>": ["class", ...], ...}.
func LoadEncoders(path string) (EncoderSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoders: %w", err)
	}
	return ParseEncoders(data)
}

// ParseEncoders decodes the label encoder document.
func ParseEncoders(data []byte) (EncoderSet, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}

	set := make(EncoderSet, len(raw))
	for column, classes := range raw {
		enc, err := NewLabelEncoder(classes)
		if err != nil {
			return nil, fmt.Errorf("encoder %q: %w", column, err)
		}
		set[column] = enc
	}
	return set, nil
}

// EncodedRecord is the numeric vector handed to the classifier, in schema order.
type EncodedRecord struct {
	Columns []string
	Values  []float64
}

// Encode replaces categorical values with their codes. The input record is not modified.
func Encode(record models.FeatureRecord, encoders EncoderSet) (EncodedRecord, error) {
	out := EncodedRecord{
		Columns: make([]string, len(schema)),
		Values:  make([]float64, len(schema)),
	}

	for i, f := range schema {
		out.Columns[i] = f.Column

		switch f.Kind {
		case KindString:
			enc, ok := encoders[f.Column]
			if !ok || enc == nil {
				return EncodedRecord{}, apperrors.NewEncoderNotConfiguredError(f.Column)
			}
			value := record.String(f.Column)
			code, ok := enc.Transform(value)
			if !ok {
				return EncodedRecord{}, apperrors.NewUnknownCategoryError(f.Column, value)
			}
			out.Values[i] = float64(code)
		case KindInt:
			out.Values[i] = float64(record.Int(f.Column))
		default:
			out.Values[i] = record.Float(f.Column)
		}
	}
	return out, nil
}
