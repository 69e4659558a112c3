// Package zip provides ZIP code extraction, normalization, and preferred-set
// membership checks for match scoring.
package zip

import (
	"regexp"
	"strings"
)

var (
	// standalonePattern matches the first standalone 5-digit run in free text.
	standalonePattern = regexp.MustCompile(`\b\d{5}\b`)
	// exactPattern validates a fully normalized ZIP.
	exactPattern = regexp.MustCompile(`^\d{5}$`)
)

// Extract finds the first standalone 5-digit ZIP in free text, such as a
// street address. The second return is false when no ZIP is present.
func Extract(freeText string) (string, bool) {
	z := standalonePattern.FindString(freeText)
	if z == "" {
		return "", false
	}
	return z, true
}

// Normalize strips whitespace and dashes from a raw ZIP, truncates to the
// first five characters, and validates the result. ZIP+4 forms like
// "70062-1234" normalize to "70062".
func Normalize(raw string) (string, bool) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(raw))
	if len(cleaned) > 5 {
		cleaned = cleaned[:5]
	}
	if !exactPattern.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// ParseList splits a comma-delimited preference string into a deduped list of
// normalized ZIPs, preserving first-seen order. Empty and invalid entries are
// dropped.
func ParseList(raw string) []string {
	return dedupeNormalized(strings.Split(raw, ","))
}

// NormalizeList normalizes and dedupes a ZIP sequence that already arrived as
// separate values.
func NormalizeList(raw []string) []string {
	return dedupeNormalized(raw)
}

func dedupeNormalized(raw []string) []string {
	var out []string
	seen := make(map[string]bool, len(raw))
	for _, entry := range raw {
		z, ok := Normalize(entry)
		if !ok || seen[z] {
			continue
		}
		seen[z] = true
		out = append(out, z)
	}
	return out
}

// InPreferred reports whether a property falls in the buyer's preferred ZIP
// set. The explicit propertyZip field wins when present; otherwise the ZIP is
// parsed out of propertyAddress. An empty preferred set never matches.
func InPreferred(propertyZip, propertyAddress string, preferred []string) bool {
	if len(preferred) == 0 {
		return false
	}

	z, ok := Normalize(propertyZip)
	if !ok {
		raw, found := Extract(propertyAddress)
		if !found {
			return false
		}
		z, ok = Normalize(raw)
		if !ok {
			return false
		}
	}

	for _, p := range preferred {
		norm, ok := Normalize(p)
		if ok && norm == z {
			return true
		}
	}
	return false
}
