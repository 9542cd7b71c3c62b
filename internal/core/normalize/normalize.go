// Package normalize cleans raw location text and canonicalizes gazetteer
// country codes against a bundled ISO 3166-1 reference table.
package normalize

import (
	"regexp"
	"strings"
)

var (
	urlRe   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	spaceRe = regexp.MustCompile(`\s+`)
	theRe   = regexp.MustCompile(`(?i)^the\s+`)
)

// manualAliases fixes spellings the gazetteer routinely mishandles.
var manualAliases = map[string]string{
	"CA":                  "California",
	"California, U.S.A.":  "California",
	"the United States":   "USA",
	"U.S.":                "USA",
	"U.S.A.":              "USA",
	"UK":                  "United Kingdom",
	"Greenland":           "Greenland, Denmark",
	"East Greenland":      "Greenland, Denmark",
	"Latin America":       "South America",
}

// PreprocessText strips URL-like substrings and collapses whitespace.
func PreprocessText(text string) string {
	text = urlRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ApplyAlias replaces exact matches from the manual alias table and
// passes everything else through unchanged.
func ApplyAlias(text string) string {
	if alias, ok := manualAliases[text]; ok {
		return alias
	}
	return text
}

// DisplayName normalizes a location name for display and grouping:
// trimmed, single-spaced, leading article removed, words title-cased.
func DisplayName(name string) string {
	name = spaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
	name = theRe.ReplaceAllString(name, "")
	return titleCase(name)
}

func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
