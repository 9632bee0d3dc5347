package util

import (
	"regexp"
	"strconv"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeHeader folds a spreadsheet column header into lookup form:
// lowercased, trimmed, internal whitespace runs collapsed to one space.
func NormalizeHeader(input string) string {
	s := strings.TrimPrefix(input, "\uFEFF")
	s = strings.ToLower(strings.TrimSpace(s))
	return reSpaces.ReplaceAllString(s, " ")
}

// NormalizeSetCode lowercases and trims a set code ("2XM" -> "2xm").
func NormalizeSetCode(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// NormalizeCollectorNumber trims but otherwise preserves the value, since
// collector numbers carry suffixes like "10a" or "★".
func NormalizeCollectorNumber(input string) string {
	return strings.TrimSpace(input)
}

var langNames = map[string]string{
	"english":             "en",
	"japanese":            "ja",
	"spanish":             "es",
	"german":              "de",
	"french":              "fr",
	"italian":             "it",
	"portuguese":          "pt",
	"korean":              "ko",
	"russian":             "ru",
	"simplified chinese":  "zhs",
	"chinese simplified":  "zhs",
	"traditional chinese": "zht",
	"chinese traditional": "zht",
	"phyrexian":           "ph",
}

// NormalizeLang maps language names and codes onto Scryfall language codes,
// defaulting to "en".
func NormalizeLang(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "en"
	}
	if code, ok := langNames[s]; ok {
		return code
	}
	if len(s) > 5 {
		s = s[:5]
	}
	return s
}

// Finish vocabulary seen across third-party collection exports. Premium
// treatments (etched, surge, galaxy, ...) all count as foil.
var positiveFoilValues = map[string]struct{}{
	"1": {}, "true": {}, "t": {}, "y": {}, "yes": {},
	"foil": {}, "foils": {}, "foilonly": {},
	"etched": {}, "etch": {}, "gilded": {}, "gild": {},
	"glossy": {}, "textured": {}, "neon": {}, "neonink": {},
	"halo": {}, "halofoil": {}, "surge": {}, "surgefoil": {},
	"galaxy": {}, "cosmic": {}, "rainbow": {}, "shiny": {},
	"sparkle": {}, "sparkly": {}, "prismatic": {},
	"oil": {}, "oilfoil": {}, "stepandcompleat": {},
	"raised": {}, "embossed": {},
}

var negativeFoilValues = map[string]struct{}{
	"0": {}, "false": {}, "f": {}, "n": {}, "no": {},
	"nonfoil": {}, "nonfoils": {}, "nf": {}, "normal": {}, "regular": {},
}

var positiveFoilSubstrings = []string{
	"foil", "etched", "gild", "gloss", "textur", "neon", "halo",
	"surge", "galaxy", "cosmic", "rainbow", "spark", "prism", "oil",
	"step-and-compleat", "stepandcompleat", "raised", "emboss",
}

var negativeFoilSubstrings = []string{
	"nonfoil", "non-foil", "non foil", "non/foil", "no foil",
}

// ParseFoil interprets the finish column of an import row. Exact token
// matches win over substring probes so "Nonfoil" never trips on "foil".
func ParseFoil(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return false
	}

	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	if _, ok := negativeFoilValues[compact]; ok {
		return false
	}
	if _, ok := positiveFoilValues[compact]; ok {
		return true
	}

	for _, token := range negativeFoilSubstrings {
		if strings.Contains(s, token) {
			return false
		}
	}
	for _, token := range positiveFoilSubstrings {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}

// CoerceInt parses an integer cell, tolerating surrounding whitespace and
// Excel's habit of rendering integers as "3.0". Returns fallback on failure.
func CoerceInt(input string, fallback int) int {
	s := strings.TrimSpace(input)
	if s == "" {
		return fallback
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return fallback
}

func StringPtr(v string) *string { return &v }
