package dedupe

import (
	"reflect"
	"testing"
)

func TestTitleTokensDropsArticles(t *testing.T) {
	got := TitleTokens("The Martian Way", true)
	want := []string{"martian", "way"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TitleTokens = %v, want %v", got, want)
	}
}

func TestTitleTokensStripsSubtitle(t *testing.T) {
	got := TitleTokens("The Martian Way (Omnibus)", true)
	want := []string{"martian", "way"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TitleTokens = %v, want %v", got, want)
	}
}

func TestTitleTokensDigitRunComma(t *testing.T) {
	got := TitleTokens("Report 1,000", false)
	want := []string{"report", "1000"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TitleTokens = %v, want %v", got, want)
	}
}

func TestAuthorTokensRotatesOnComma(t *testing.T) {
	got := AuthorTokens("Anderson, Kevin J.", false)
	want := []string{"kevin", "j", "anderson"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AuthorTokens = %v, want %v", got, want)
	}
}

func TestAuthorTokensDropsStopWords(t *testing.T) {
	got := AuthorTokens("Martin Luther King Jr", false)
	want := []string{"martin", "luther", "king"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AuthorTokens = %v, want %v", got, want)
	}
}

func TestAuthorTokensPipeRewrite(t *testing.T) {
	got := AuthorTokens("Smith|John|Q", false)
	want := []string{"john", "q", "smith"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AuthorTokens = %v, want %v", got, want)
	}
}

func TestAuthorTokensStripInitials(t *testing.T) {
	got := AuthorTokens("Kevin J Anderson", true)
	want := []string{"kevin", "anderson"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AuthorTokens = %v, want %v", got, want)
	}
}

func TestSeriesTokensStopWords(t *testing.T) {
	got := SeriesTokens("The Dune Chronicles")
	want := []string{"dune", "chronicles"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SeriesTokens = %v, want %v", got, want)
	}
}
