package security

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

type SanitizerConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	MaxStringLength int  `yaml:"max_string_length" mapstructure:"max_string_length"`
	MaxArrayLength  int  `yaml:"max_array_length" mapstructure:"max_array_length"`
	MaxObjectDepth  int  `yaml:"max_object_depth" mapstructure:"max_object_depth"`
	MaxTermLength   int  `yaml:"max_term_length" mapstructure:"max_term_length"`
	StrictMode      bool `yaml:"strict_mode" mapstructure:"strict_mode"`
	// RichTextFields keep a safe HTML subset instead of being stripped.
	RichTextFields []string `yaml:"rich_text_fields" mapstructure:"rich_text_fields"`
}

func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{
		Enabled:         true,
		MaxStringLength: 20000,
		MaxArrayLength:  200,
		MaxObjectDepth:  5,
		MaxTermLength:   200,
		RichTextFields:  []string{"content", "description"},
	}
}

// InputSanitizer cleans admin-submitted document fields. Plain text fields
// lose all markup; rich text fields keep the UGC subset.
type InputSanitizer struct {
	config     SanitizerConfig
	strict     *bluemonday.Policy
	ugc        *bluemonday.Policy
	richFields map[string]bool
}

func NewInputSanitizer(config SanitizerConfig) *InputSanitizer {
	is := &InputSanitizer{
		config:     config,
		richFields: make(map[string]bool, len(config.RichTextFields)),
	}
	if config.Enabled {
		is.strict = bluemonday.StrictPolicy()
		is.ugc = bluemonday.UGCPolicy()
	}
	for _, f := range config.RichTextFields {
		is.richFields[f] = true
	}
	return is
}

func (is *InputSanitizer) IsEnabled() bool {
	return is.config.Enabled
}

func (is *InputSanitizer) clean(input string) (string, error) {
	if is.config.MaxStringLength > 0 && utf8.RuneCountInString(input) > is.config.MaxStringLength {
		if is.config.StrictMode {
			return "", fmt.Errorf("string length exceeds maximum allowed length of %d", is.config.MaxStringLength)
		}
		input = truncateRunes(input, is.config.MaxStringLength)
	}

	if !utf8.ValidString(input) {
		if is.config.StrictMode {
			return "", fmt.Errorf("invalid UTF-8 string")
		}
		input = strings.ToValidUTF8(input, "")
	}

	return strings.ReplaceAll(input, "\x00", ""), nil
}

// SanitizeString strips all markup. StrictPolicy escapes what it keeps, so the
// result is unescaped back to plain text for storage.
func (is *InputSanitizer) SanitizeString(input string) (string, error) {
	if !is.config.Enabled {
		return input, nil
	}
	input, err := is.clean(input)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(html.UnescapeString(is.strict.Sanitize(input))), nil
}

func (is *InputSanitizer) SanitizeRichText(input string) (string, error) {
	if !is.config.Enabled {
		return input, nil
	}
	input, err := is.clean(input)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(is.ugc.Sanitize(input)), nil
}

// SanitizeTerm only bounds a search term. Markup in a term is harmless since
// it is matched literally, and rewriting it would change what matches.
func (is *InputSanitizer) SanitizeTerm(term string) (string, error) {
	if !is.config.Enabled {
		return term, nil
	}
	term, err := is.clean(term)
	if err != nil {
		return "", err
	}
	if is.config.MaxTermLength > 0 && utf8.RuneCountInString(term) > is.config.MaxTermLength {
		if is.config.StrictMode {
			return "", fmt.Errorf("search term too long")
		}
		term = truncateRunes(term, is.config.MaxTermLength)
	}
	return term, nil
}

// SanitizeFields cleans a document's field map, recursing into lists and
// nested objects up to the configured depth.
func (is *InputSanitizer) SanitizeFields(fields map[string]any) (map[string]any, error) {
	if !is.config.Enabled {
		return fields, nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		var (
			v   any
			err error
		)
		if s, ok := value.(string); ok && is.richFields[key] {
			v, err = is.SanitizeRichText(s)
		} else {
			v, err = is.sanitizeValue(value, 0)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

func (is *InputSanitizer) sanitizeValue(value any, depth int) (any, error) {
	if is.config.MaxObjectDepth > 0 && depth > is.config.MaxObjectDepth {
		return nil, fmt.Errorf("maximum object depth of %d exceeded", is.config.MaxObjectDepth)
	}

	switch v := value.(type) {
	case string:
		return is.SanitizeString(v)
	case []any:
		if is.config.MaxArrayLength > 0 && len(v) > is.config.MaxArrayLength {
			if is.config.StrictMode {
				return nil, fmt.Errorf("array length exceeds maximum allowed length of %d", is.config.MaxArrayLength)
			}
			v = v[:is.config.MaxArrayLength]
		}
		out := make([]any, 0, len(v))
		for _, item := range v {
			s, err := is.sanitizeValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return is.sanitizeValue(items, depth)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			cleanKey, err := is.SanitizeString(key)
			if err != nil {
				return nil, err
			}
			s, err := is.sanitizeValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			out[cleanKey] = s
		}
		return out, nil
	default:
		return value, nil
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
