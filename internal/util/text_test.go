package util

import "testing"

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Set Code", "set code"},
		{"set_code", "set_code"},
		{" SET   CODE ", "set code"},
		{"\tCollector\tNumber", "collector number"},
	}
	for _, tc := range cases {
		if got := NormalizeHeader(tc.input); got != tc.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseFoil(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"1", true},
		{"foil", true},
		{"Foil", true},
		{"Nonfoil", false},
		{"non-foil", false},
		{"Non Foil", false},
		{"Surge Foil", true},
		{"etched", true},
		{"Normal", false},
		{"Step-and-Compleat", true},
	}
	for _, tc := range cases {
		if got := ParseFoil(tc.input); got != tc.want {
			t.Errorf("ParseFoil(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeLang(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"", "en"},
		{"EN", "en"},
		{"English", "en"},
		{"Japanese", "ja"},
		{"Simplified Chinese", "zhs"},
		{"pt", "pt"},
	}
	for _, tc := range cases {
		if got := NormalizeLang(tc.input); got != tc.want {
			t.Errorf("NormalizeLang(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"3", 3},
		{" 4 ", 4},
		{"2.0", 2},
		{"", 1},
		{"abc", 1},
		{"2.5", 1},
	}
	for _, tc := range cases {
		if got := CoerceInt(tc.input, 1); got != tc.want {
			t.Errorf("CoerceInt(%q, 1) = %d, want %d", tc.input, got, tc.want)
		}
	}
}
