package dedupe

import "testing"

func TestTitleMatchKeyIdentical(t *testing.T) {
	key, err := TitleMatchKey("The Martian Way", PolicyIdentical, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if key != "the martian way" {
		t.Fatalf("TitleMatchKey = %q", key)
	}
}

func TestTitleMatchKeySimilarDropsArticleAndPunct(t *testing.T) {
	a, err := TitleMatchKey("The Martian Way", PolicySimilar, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	b, err := TitleMatchKey("Martian-Way", PolicySimilar, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("TitleMatchKey similar: %q != %q", a, b)
	}
}

func TestTitleMatchKeySoundexTypoTolerant(t *testing.T) {
	a, err := TitleMatchKey("Angel Fire", PolicySoundex, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	b, err := TitleMatchKey("Angle Fire", PolicySoundex, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("TitleMatchKey soundex: %q != %q", a, b)
	}
}

func TestTitleMatchKeyUnknownPolicy(t *testing.T) {
	if _, err := TitleMatchKey("X", Policy("bogus"), DefaultSoundexLengths()); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestAuthorMatchKeyNameOrderInversion(t *testing.T) {
	// spec S5: "Kevin J Anderson" and "Anderson, Kevin J" must land in the
	// same candidate bucket under the similar policy via primary/alt keys.
	forward, err := AuthorMatchKey("Kevin J Anderson", PolicySimilar, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	inverted, err := AuthorMatchKey("Anderson, Kevin J", PolicySimilar, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}

	keys := func(k AuthorKey) []string {
		out := []string{k.Primary}
		if k.Alt != nil {
			out = append(out, *k.Alt)
		}
		return out
	}

	overlap := false
	for _, fk := range keys(forward) {
		for _, ik := range keys(inverted) {
			if fk == ik {
				overlap = true
			}
		}
	}
	if !overlap {
		t.Fatalf("expected overlapping keys, got forward=%+v inverted=%+v", forward, inverted)
	}
}

func TestAuthorMatchKeyIdenticalRewritesPipe(t *testing.T) {
	ak, err := AuthorMatchKey("Smith|John", PolicyIdentical, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if ak.Primary != "smith,john" {
		t.Fatalf("AuthorMatchKey identical = %q, want %q", ak.Primary, "smith,john")
	}
}

func TestAuthorMatchKeyFuzzySingleToken(t *testing.T) {
	ak, err := AuthorMatchKey("Cher", PolicyFuzzy, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if ak.Primary != "cher" || ak.Alt != nil {
		t.Fatalf("AuthorMatchKey fuzzy = %+v", ak)
	}
}

func TestAuthorMatchKeyUnknownPolicy(t *testing.T) {
	if _, err := AuthorMatchKey("X", Policy("bogus"), DefaultSoundexLengths()); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestSeriesMatchKeyIdentical(t *testing.T) {
	key, err := SeriesMatchKey("  Dune  ", PolicyIdentical, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if key != "dune" {
		t.Fatalf("SeriesMatchKey = %q", key)
	}
}

func TestPublisherMatchKeyFuzzyJoinsInitial(t *testing.T) {
	key, err := PublisherMatchKey("A Press Books", PolicyFuzzy, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if key != "a press" {
		t.Fatalf("PublisherMatchKey fuzzy = %q, want %q", key, "a press")
	}
}

func TestTagMatchKeySimilar(t *testing.T) {
	key, err := TagMatchKey("Science Fiction", PolicySimilar, DefaultSoundexLengths())
	if err != nil {
		t.Fatal(err)
	}
	if key == "" {
		t.Fatal("expected non-empty tag match key")
	}
}
