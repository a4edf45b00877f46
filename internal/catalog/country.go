package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// countryTable lists ISO 3166-1 alpha-2 codes with their display name first,
// followed by aliases seen in scraped locations.
var countryTable = []struct {
	code  string
	names []string
}{
	{"AR", []string{"Argentina"}},
	{"AT", []string{"Austria"}},
	{"AU", []string{"Australia"}},
	{"BE", []string{"Belgium"}},
	{"BG", []string{"Bulgaria"}},
	{"BR", []string{"Brazil", "Brasil"}},
	{"CA", []string{"Canada"}},
	{"CH", []string{"Switzerland"}},
	{"CL", []string{"Chile"}},
	{"CN", []string{"China"}},
	{"CO", []string{"Colombia"}},
	{"CZ", []string{"Czechia", "Czech Republic"}},
	{"DE", []string{"Germany", "Deutschland"}},
	{"DK", []string{"Denmark"}},
	{"EG", []string{"Egypt"}},
	{"ES", []string{"Spain", "España"}},
	{"FI", []string{"Finland"}},
	{"FR", []string{"France"}},
	{"GB", []string{"United Kingdom", "UK", "Great Britain", "England"}},
	{"GR", []string{"Greece"}},
	{"HR", []string{"Croatia"}},
	{"HU", []string{"Hungary"}},
	{"ID", []string{"Indonesia"}},
	{"IE", []string{"Ireland"}},
	{"IL", []string{"Israel"}},
	{"IN", []string{"India"}},
	{"IT", []string{"Italy"}},
	{"JP", []string{"Japan"}},
	{"KR", []string{"South Korea", "Korea, Republic of", "Republic of Korea"}},
	{"MX", []string{"Mexico"}},
	{"MY", []string{"Malaysia"}},
	{"NL", []string{"Netherlands", "The Netherlands", "Holland"}},
	{"NO", []string{"Norway"}},
	{"NZ", []string{"New Zealand"}},
	{"PE", []string{"Peru"}},
	{"PH", []string{"Philippines"}},
	{"PL", []string{"Poland"}},
	{"PT", []string{"Portugal"}},
	{"RO", []string{"Romania"}},
	{"RS", []string{"Serbia"}},
	{"RU", []string{"Russia", "Russian Federation"}},
	{"SA", []string{"Saudi Arabia"}},
	{"SE", []string{"Sweden"}},
	{"SK", []string{"Slovakia"}},
	{"TH", []string{"Thailand"}},
	{"TR", []string{"Turkey", "Türkiye"}},
	{"TW", []string{"Taiwan"}},
	{"UA", []string{"Ukraine"}},
	{"AE", []string{"United Arab Emirates", "UAE"}},
	{"US", []string{"United States", "USA", "United States of America"}},
	{"VN", []string{"Vietnam", "Viet Nam"}},
	{"ZA", []string{"South Africa"}},
}

var (
	codeToName = map[string]string{}
	nameToCode = map[string]string{}
)

func init() {
	for _, c := range countryTable {
		codeToName[c.code] = c.names[0]
		for _, n := range c.names {
			nameToCode[countryKey(n)] = c.code
		}
	}
}

// countryKey is the case-folded, NFC, single-spaced form of s.
func countryKey(s string) string {
	s = strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	return norm.NFC.String(cases.Fold().String(s))
}

// CountryCode maps a country name (any case, any spacing) to its code.
func CountryCode(name string) (string, bool) {
	code, ok := nameToCode[countryKey(name)]
	return code, ok
}

// CountryName maps a code to its display name.
func CountryName(code string) (string, bool) {
	name, ok := codeToName[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Canonical returns the canonical form of a country value. The code form
// wins: "US", "us", "United States" and "USA" all become "US". Values that
// match neither table are case-folded, so "Kenya" and "KENYA" collapse.
func Canonical(country string) string {
	key := countryKey(country)
	if key == "" {
		return ""
	}
	if len(key) == 2 {
		if up := strings.ToUpper(key); codeToName[up] != "" {
			return up
		}
	}
	if code, ok := nameToCode[key]; ok {
		return code
	}
	return key
}

// DisplayCountry returns the display name for a canonical value. Countries
// outside the table are title-cased.
func DisplayCountry(canonical string) string {
	if name, ok := CountryName(canonical); ok {
		return name
	}
	return cases.Title(language.Und).String(canonical)
}

// AvailableCountries returns the distinct canonical countries in records,
// sorted. Records without a country are left out.
func AvailableCountries(records []CameraRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.CountryCode == "" {
			continue
		}
		seen[r.CountryCode] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Filter returns the records whose country matches filter. An empty filter
// means all records. The result is always a fresh slice.
func Filter(records []CameraRecord, filter string) []CameraRecord {
	want := Canonical(filter)
	out := make([]CameraRecord, 0, len(records))
	for _, r := range records {
		if want == "" || r.CountryCode == want {
			out = append(out, r)
		}
	}
	return out
}
