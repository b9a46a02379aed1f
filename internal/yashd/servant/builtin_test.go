package servant

import "testing"

func TestIsBuiltin(t *testing.T) {
	cases := map[string]bool{
		"jobs":           true,
		"bg":             true,
		"fg":             true,
		"ls":             false,
		"cat":            false,
		"":               false,
		"jobs extra-arg": false,
		"bg anything":    false,
	}
	for name, want := range cases {
		if got := isBuiltin(name); got != want {
			t.Errorf("isBuiltin(%q) = %v, want %v", name, got, want)
		}
	}
}
