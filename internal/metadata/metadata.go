// Package metadata pulls structured fields out of extracted document
// text: Brazilian tax ids, dates, monetary values, emails and phones.
package metadata

import (
	"regexp"
	"strings"
)

var patterns = map[string]*regexp.Regexp{
	"cnpj":  regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`),
	"cpf":   regexp.MustCompile(`\d{3}\.?\d{3}\.?\d{3}-?\d{2}`),
	"date":  regexp.MustCompile(`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}`),
	"value": regexp.MustCompile(`R\$?\s*\d{1,3}(?:\.\d{3})*(?:,\d{2})?`),
	"email": regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	"phone": regexp.MustCompile(`\(?\d{2}\)?\s*\d{4,5}-?\d{4}`),
}

var valueClean = regexp.MustCompile(`[^\d,.]`)

// Extract scans text with the field patterns and returns the matches
// keyed by field name, deduplicated, plus basic text statistics under
// "stats". Monetary values are normalized to digits, commas and dots.
func Extract(text string) map[string]any {
	meta := map[string]any{}
	upper := strings.ToUpper(text)

	for field, pattern := range patterns {
		matches := pattern.FindAllString(upper, -1)
		if len(matches) == 0 {
			continue
		}
		meta[field] = dedupe(matches)
	}

	if values, ok := meta["value"].([]string); ok {
		clean := make([]string, 0, len(values))
		for _, v := range values {
			if c := valueClean.ReplaceAllString(v, ""); c != "" {
				clean = append(clean, c)
			}
		}
		meta["value"] = clean
	}

	meta["stats"] = map[string]any{
		"total_chars": len(text),
		"total_words": len(strings.Fields(text)),
		"total_lines": len(strings.Split(text, "\n")),
	}
	return meta
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
