package dataset

// cells.go turns raw CSV text into typed cells.
//
// A raw value is null when it matches one of the usual missing-value markers,
// a number when it has plain decimal or scientific notation, and text otherwise.
// Spreadsheet artifacts (="..." formula wrappers, surrounding quotes, stray
// whitespace) are stripped before any of those checks.

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex accepts integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// nullTokens are the raw values read as missing.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"NULL": {},
	"null": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

// IsNullToken reports whether a cleaned raw value means "missing".
func IsNullToken(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

// CleanCell removes common CSV artifacts from a raw value:
// surrounding whitespace, an Excel formula prefix (="..." or =...) and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ParseNumber parses a cleaned value as a float64.
// It only accepts plain numeric notation; "inf", hex floats and
// digit separators are rejected so they classify as text.
func ParseNumber(s string) (float64, bool) {
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCell converts one raw CSV value into a Cell.
func ParseCell(raw string) Cell {
	s := CleanCell(raw)
	if IsNullToken(s) {
		return NullCell()
	}
	if v, ok := ParseNumber(s); ok {
		return NumberCell(v)
	}
	return TextCell(s)
}

// CleanHeader normalises a header name: artifacts removed, non-breaking
// spaces replaced and inner whitespace collapsed.
func CleanHeader(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = CleanCell(s)
	return strings.Join(strings.Fields(s), " ")
}

// uniqueHeaders cleans header names, fills blanks with "Unnamed: i" and
// suffixes repeats with ".1", ".2", ... so every column name is distinct.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := CleanHeader(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		n := seen[base]
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			n++
			name = base + "." + strconv.Itoa(n)
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
