package catalog

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCanonical_code_is_canonical(t *testing.T) {
	for _, in := range []string{"US", "us", "United States", "united  states", "USA", " United States of America "} {
		if got := Canonical(in); got != "US" {
			t.Errorf("Canonical(%q) = %q, want US", in, got)
		}
	}
	if Canonical("Russia") != Canonical("Russian Federation") {
		t.Error("Russia and Russian Federation should collapse")
	}
	if got := Canonical(" Atlantis "); got != "atlantis" {
		t.Errorf("unknown country should be folded, got %q", got)
	}
	if got := Canonical("   "); got != "" {
		t.Errorf("blank should be empty, got %q", got)
	}
}

func TestCanonical_idempotent_property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := make([]string, 0, len(countryTable)*3)
	for _, c := range countryTable {
		names = append(names, c.code)
		names = append(names, c.names...)
	}

	properties.Property("canonical(canonical(x)) == canonical(x) for arbitrary text", prop.ForAll(
		func(s string) bool {
			once := Canonical(s)
			return Canonical(once) == once
		},
		gen.AnyString(),
	))
	properties.Property("canonical(canonical(x)) == canonical(x) for known names", prop.ForAll(
		func(s string) bool {
			once := Canonical(s)
			return Canonical(once) == once
		},
		gen.OneConstOf(toInterfaces(names)...),
	))

	properties.Property("canonical ignores case", prop.ForAll(
		func(s string) bool {
			c := Canonical(s)
			return Canonical(strings.ToUpper(s)) == c && Canonical(strings.ToLower(s)) == c
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestFilter_countries_outside_table(t *testing.T) {
	records := []CameraRecord{
		{ID: "1", CountryCode: Canonical("Kenya")},
		{ID: "2", CountryCode: Canonical("KENYA")},
		{ID: "3", CountryCode: Canonical("US")},
	}
	if got := AvailableCountries(records); !reflect.DeepEqual(got, []string{"US", "kenya"}) {
		t.Errorf("AvailableCountries = %v, want [US kenya]", got)
	}
	if got := Filter(records, "kenya"); len(got) != 2 {
		t.Errorf("Filter(kenya) = %d records, want 2", len(got))
	}
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func TestCountryName(t *testing.T) {
	if name, ok := CountryName("gb"); !ok || name != "United Kingdom" {
		t.Errorf("CountryName(gb) = %q, %v", name, ok)
	}
	if _, ok := CountryName("XX"); ok {
		t.Error("XX should be unknown")
	}
	if got := DisplayCountry(Canonical("ATLANTIS")); got != "Atlantis" {
		t.Errorf("DisplayCountry should title-case unknown countries, got %q", got)
	}
}

func TestAvailableCountries_sorted_and_collapsed(t *testing.T) {
	records := []CameraRecord{
		{ID: "1", CountryCode: Canonical("United States")},
		{ID: "2", CountryCode: Canonical("US")},
		{ID: "3", CountryCode: Canonical("Japan")},
		{ID: "4", CountryCode: ""},
		{ID: "5", CountryCode: Canonical("Argentina")},
	}
	got := AvailableCountries(records)
	want := []string{"AR", "JP", "US"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AvailableCountries = %v, want %v", got, want)
	}
}

func TestFilter(t *testing.T) {
	records := []CameraRecord{
		{ID: "1", CountryCode: "US"},
		{ID: "2", CountryCode: "JP"},
		{ID: "3", CountryCode: "US"},
	}

	t.Run("empty_filter_means_all", func(t *testing.T) {
		if got := Filter(records, ""); len(got) != 3 {
			t.Errorf("expected 3, got %d", len(got))
		}
	})
	t.Run("name_and_code_match", func(t *testing.T) {
		byName := Filter(records, "United States")
		byCode := Filter(records, "us")
		if len(byName) != 2 || len(byCode) != 2 {
			t.Errorf("expected 2 US records, got %d and %d", len(byName), len(byCode))
		}
	})
	t.Run("no_match_is_empty_not_nil", func(t *testing.T) {
		got := Filter(records, "Peru")
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %v", got)
		}
	})
	t.Run("fresh_slice", func(t *testing.T) {
		got := Filter(records, "")
		got[0].ID = "changed"
		if records[0].ID != "1" {
			t.Error("Filter must not alias the input")
		}
	})
}
