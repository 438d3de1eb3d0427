package tools

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  Version
		ok    bool
	}{
		{"2.4.1", Version{2, 4, 1, 0}, true},
		{"GPL Ghostscript 10.02.1 (2023-11-01)", Version{10, 2, 1, 0}, true},
		{"7.1.1-15", Version{7, 1, 1, 15}, true},
		{"1.2", Version{1, 2, 0, 0}, true},
		{"1.2.3.4", Version{1, 2, 3, 4}, true},
		{"1.2_7", Version{1, 2, 0, 7}, true},
		{"no digits here", Version{}, false},
		{"42", Version{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseVersion(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{Version{1, 2, 3, 0}, Version{1, 2, 3, 0}, 0},
		{Version{1, 2, 3, 0}, Version{1, 2, 4, 0}, -1},
		{Version{2, 0, 0, 0}, Version{1, 9, 9, 9}, 1},
		{Version{1, 2, 3, 1}, Version{1, 2, 3, 0}, 1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
	if !(Version{}).AtLeast(Version{}) {
		t.Errorf("zero version should satisfy a zero minimum")
	}
}

func TestVersionString(t *testing.T) {
	if got := (Version{2, 4, 1, 0}).String(); got != "2.4.1" {
		t.Errorf("got %q", got)
	}
	if got := (Version{7, 1, 1, 15}).String(); got != "7.1.1.15" {
		t.Errorf("got %q", got)
	}
}

func TestVersionUnmarshalYAML(t *testing.T) {
	var doc struct {
		A Version `yaml:"a"`
		B Version `yaml:"b"`
		C Version `yaml:"c"`
	}
	if err := yaml.Unmarshal([]byte("a: 2.4.1\nb: 3\nc: 2.0\n"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.A != (Version{2, 4, 1, 0}) || doc.B != (Version{3, 0, 0, 0}) || doc.C != (Version{2, 0, 0, 0}) {
		t.Fatalf("unexpected versions %v %v %v", doc.A, doc.B, doc.C)
	}

	var bad struct {
		V Version `yaml:"v"`
	}
	if err := yaml.Unmarshal([]byte("v: latest\n"), &bad); err == nil {
		t.Fatalf("expected an error for a non-version")
	}
}

func TestVersionFromOutput(t *testing.T) {
	dep := Dependency{Command: "kicad-diff.py", VersionPrefix: "KiDiff"}
	tests := []struct {
		output string
		want   Version
	}{
		{"kicad-diff.py version 2.5.3\nmore text", Version{2, 5, 3, 0}},
		{"kicad-diff.py 2.5.3", Version{2, 5, 3, 0}},
		{"KiDiff 2.4.1 (build 3)", Version{2, 4, 1, 0}},
		{"  2.1.0\r\nsecond 9.9.9", Version{2, 1, 0, 0}},
	}
	for _, tt := range tests {
		got, ok := versionFromOutput(dep, tt.output)
		if !ok || got != tt.want {
			t.Errorf("versionFromOutput(%q) = %v, %v; want %v", tt.output, got, ok, tt.want)
		}
	}
	if _, ok := versionFromOutput(dep, "usage: kicad-diff.py [options]\nversion 2.0.0"); ok {
		t.Errorf("only the first line may be parsed")
	}
}

func TestEffectiveMinimum(t *testing.T) {
	dep := Dependency{Roles: []Role{
		{Output: "a"},
		{Version: Version{2, 0, 0, 0}},
		{Version: Version{2, 4, 1, 0}},
		{Version: Version{1, 9, 0, 0}},
	}}
	if got := dep.EffectiveMinimum(); got != (Version{2, 4, 1, 0}) {
		t.Fatalf("got %v", got)
	}
	if (Dependency{}).EffectiveMinimum() != (Version{}) {
		t.Fatalf("no roles should need no version")
	}
}

func TestParseMinimums(t *testing.T) {
	minimums, notes := ParseMinimums(map[string]string{
		"KiDiff": "2.5",
		"Git":    "newest",
		"RAR":    " ",
	})
	if got := minimums["kidiff"]; got != (Version{2, 5, 0, 0}) {
		t.Fatalf("kidiff minimum = %v", got)
	}
	if _, ok := minimums["git"]; ok {
		t.Fatalf("unparsable minimum should be skipped")
	}
	if len(notes) != 1 {
		t.Fatalf("expected one note, got %v", notes)
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		raw  string
		want Version
		ok   bool
	}{
		{"10", Version{10, 0, 0, 0}, true},
		{" 9.50 ", Version{9, 50, 0, 0}, true},
		{"2.4.1", Version{2, 4, 1, 0}, true},
		{"soon", Version{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseRequirement(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRequirement(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
