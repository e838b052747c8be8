// Tests for semantic version comparison in the update package.
package update

import "testing"

func TestSemverLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0.1.0", "0.2.0", true},
		{"0.2.0", "0.1.0", false},
		{"1.0.0", "1.0.0", false},
		{"v1.2.3", "1.2.4", true},
		{"1.9.0", "1.10.0", true},
		{"0.1.0-dev", "0.1.0", true},
		{"0.1.0", "0.1.0-dev", false},
		{"0.1.0-dev+abc", "0.1.0-rc1", false},
		{"dev", "1.0.0", false},
		{"1.0.0", "not-a-version", false},
	}
	for _, tt := range tests {
		if got := semverLess(tt.a, tt.b); got != tt.want {
			t.Errorf("semverLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseSemver(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantNil bool
	}{
		{in: "1.2.3", want: []int{1, 2, 3}},
		{in: "v0.10.0", want: []int{0, 10, 0}},
		{in: "0.1.0-dev+05ffee5", want: []int{0, 1, 0}},
		{in: "1.2", wantNil: true},
		{in: "a.b.c", wantNil: true},
		{in: "", wantNil: true},
	}
	for _, tt := range tests {
		got := parseSemver(tt.in)
		if tt.wantNil {
			if got != nil {
				t.Errorf("parseSemver(%q) = %v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("parseSemver(%q) = nil, want %v", tt.in, tt.want)
			continue
		}
		for i := 0; i < 3; i++ {
			if got[i] != tt.want[i] {
				t.Errorf("parseSemver(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestHasPreRelease(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.1.0", false},
		{"0.1.0-dev", true},
		{"v1.0.0-beta+build", true},
		{"v1.0.0", false},
	}
	for _, tt := range tests {
		if got := hasPreRelease(tt.in); got != tt.want {
			t.Errorf("hasPreRelease(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
