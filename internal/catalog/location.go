package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// UnknownLocation is shown when nothing usable can be derived from a location.
const UnknownLocation = "Unknown"

var (
	legacyLocated = regexp.MustCompile(`(?i)located\s+in\s+([^,]+),\s*region\s+([^,]+),\s*(.+)$`)
	trailingIn    = regexp.MustCompile(`(?i)\s+in\s+(.+)$`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// cyrillicLatin maps lowercase Cyrillic letters (Russian and Ukrainian) to a
// Latin approximation. Hard and soft signs drop out.
var cyrillicLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// DefaultFixups corrects city names that scrapers and transliteration get
// wrong. Keys are compared case-insensitively.
var DefaultFixups = map[string]string{
	"filadelfiya":          "Philadelphia",
	"moskva":               "Moscow",
	"sankt-peterburg":      "Saint Petersburg",
	"kharkov":              "Kharkiv",
	"kiyev":                "Kyiv",
	"kiev":                 "Kyiv",
	"odessa":               "Odesa",
	"n'yu-york":            "New York",
	"nyu-york":             "New York",
	"san nicolas de los g": "San Nicolas de los Garza",
}

// LocationParser turns free-text camera locations into short "City, Country"
// display strings. The zero value is not usable; call NewLocationParser.
type LocationParser struct {
	fixups map[string]string
}

// NewLocationParser returns a parser using DefaultFixups merged with extra.
func NewLocationParser(extra map[string]string) *LocationParser {
	fixups := make(map[string]string, len(DefaultFixups)+len(extra))
	for k, v := range DefaultFixups {
		fixups[k] = v
	}
	for k, v := range extra {
		fixups[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &LocationParser{fixups: fixups}
}

// LoadFixups reads a YAML mapping of misspelled city → corrected city.
func LoadFixups(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixups: %w", err)
	}
	var doc struct {
		Cities map[string]string `yaml:"cities"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse fixups %s: %w", path, err)
	}
	return doc.Cities, nil
}

// Short derives the display location. It accepts:
//   - clean "City, Country" text, returned as is;
//   - legacy "... located in X, region Y, Z" phrasing, reassembled as "Z, X";
//   - "Live camera in City, Country" style titles;
//   - Cyrillic city names, transliterated letter by letter.
//
// The result is never empty.
func (p *LocationParser) Short(location string) string {
	s := strings.TrimSpace(spaceRun.ReplaceAllString(norm.NFC.String(location), " "))
	if s == "" {
		return UnknownLocation
	}

	if m := legacyLocated.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[3]) + ", " + strings.TrimSpace(m[1])
	} else if m := trailingIn.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if hasCyrillic(part) {
			part = cases.Title(language.Und).String(transliterate(part))
		}
		if fixed, ok := p.fixups[strings.ToLower(part)]; ok {
			part = fixed
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return UnknownLocation
	}
	return strings.Join(out, ", ")
}

// CountryOf extracts the country part of a short location: the last comma
// separated component, or the whole string when it is a known country.
func CountryOf(short string) string {
	if short == "" || short == UnknownLocation {
		return ""
	}
	parts := strings.Split(short, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if len(parts) > 1 {
		return last
	}
	if _, ok := CountryName(Canonical(last)); ok {
		return last
	}
	return ""
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower := unicode.ToLower(r)
		latin, ok := cyrillicLatin[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if lower != r && latin != "" {
			latin = strings.ToUpper(latin[:1]) + latin[1:]
		}
		b.WriteString(latin)
	}
	return b.String()
}
