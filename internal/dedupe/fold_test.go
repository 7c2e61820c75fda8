package dedupe

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Miéville": "Mieville",
		"Brontë":   "Bronte",
		"naïve":    "naive",
		"":         "",
		"plain":    "plain",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFoldIdempotent(t *testing.T) {
	for _, s := range []string{"Miéville", "naïve", "plain text"} {
		if got := Fold(Fold(s)); got != Fold(s) {
			t.Errorf("Fold(Fold(%q)) = %q, want %q", s, got, Fold(s))
		}
	}
}
