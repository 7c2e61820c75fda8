package dedupe

import (
	"regexp"
	"strings"
)

var (
	reSubtitle       = regexp.MustCompile(`(?:[(\[{].*?[)\]}]|[/:\\].*$)`)
	reYearEdition    = regexp.MustCompile(`(?i)[({\[](\d{4}|omnibus|anthology|hardcover|paperback|mass\s*market|edition|ed\.)[\])}]`)
	reBracketEdition = regexp.MustCompile(`(?i)[(\[{][^)\]}]*(edition|ed\.)[^)\]}]*[)\]}]`)
	reDigitComma     = regexp.MustCompile(`(\d),(\d)`)
	reSpaceHyphen    = regexp.MustCompile(`\s-`)
	reTitlePunct     = regexp.MustCompile(`[:,;+!@#$%^&*(){}.` + "`" + `~"\[\]/]`)

	reAuthorCommaFix  = regexp.MustCompile(`,(\S)`)
	reAuthorSeparator = regexp.MustCompile(`[-+.:;]`)

	authorTokenPunct = strings.NewReplacer(
		",", "", "!", "", "@", "", "#", "", "$", "", "%", "", "^", "", "&", "",
		"*", "", "(", "", ")", "", "{", "", "}", "", "`", "", "~", "", `"`, "",
		"[", "", "]", "", "/", "",
	)
)

var titleStopWords = map[string]bool{"a": true, "the": true}

var authorStopWords = map[string]bool{
	"von": true, "van": true, "jr": true, "sr": true,
	"i": true, "ii": true, "iii": true,
	"second": true, "third": true, "md": true, "phd": true,
}

var seriesStopWords = map[string]bool{"the": true, "a": true, "and": true}

var publisherStopWords = map[string]bool{
	"the": true, "inc": true, "ltd": true, "limited": true,
	"llc": true, "co": true, "pty": true, "usa": true, "uk": true,
}

var tagStopWords = map[string]bool{"the": true, "and": true, "a": true}

// TitleTokens tokenizes a raw title per spec §4.2: optional subtitle strip,
// year/edition-marker removal, digit-run comma stripping, whitespace-hyphen
// collapsing, stray-apostrophe dropping, punctuation removal, unicode fold,
// whitespace split, and the {a, the} stop-word filter.
func TitleTokens(title string, stripSubtitle bool) []string {
	t := title
	if stripSubtitle {
		if stripped := reSubtitle.ReplaceAllString(t, ""); len([]rune(stripped)) >= 2 {
			t = stripped
		}
	}
	t = reYearEdition.ReplaceAllString(t, "")
	t = reBracketEdition.ReplaceAllString(t, "")
	t = reDigitComma.ReplaceAllString(t, "${1}${2}")
	t = reSpaceHyphen.ReplaceAllString(t, " ")
	t = dropLoneApostrophes(t)
	t = reTitlePunct.ReplaceAllString(t, " ")
	t = Fold(t)

	fields := strings.Fields(t)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if titleStopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// dropLoneApostrophes removes every "'" not immediately followed by "s"/"S",
// preserving contractions like "author's" while stripping ones like O'Brien
// per spec §4.2(f).
func dropLoneApostrophes(s string) string {
	r := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, c := range r {
		if c == '\'' {
			if i+1 < len(r) && (r[i+1] == 's' || r[i+1] == 'S') {
				b.WriteRune(c)
			}
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// AuthorTokens tokenizes a raw display name per spec §4.2. Any "|" is first
// rewritten to "," (spec §9 Open Question 2 — store-level intra-name
// separator). stripInitials raises the minimum surviving token length from
// 0 to 1, as used by the similar author policy.
func AuthorTokens(author string, stripInitials bool) []string {
	raw := strings.ReplaceAll(author, "|", ",")
	hasComma := strings.Contains(raw, ",")

	s := reAuthorCommaFix.ReplaceAllString(raw, ", $1")
	s = reAuthorSeparator.ReplaceAllString(s, " ")
	s = Fold(s)

	fields := strings.Fields(s)
	if hasComma && len(fields) > 1 {
		fields = append(append([]string{}, fields[1:]...), fields[0])
	}

	minLen := 0
	if stripInitials {
		minLen = 1
	}

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = authorTokenPunct.Replace(f)
		f = strings.ToLower(f)
		if len([]rune(f)) <= minLen {
			continue
		}
		if authorStopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func simpleFieldTokens(s string, stopwords map[string]bool) []string {
	t := reTitlePunct.ReplaceAllString(s, " ")
	t = Fold(t)
	fields := strings.Fields(t)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SeriesTokens tokenizes a series name with the {the, a, and} stop set.
func SeriesTokens(s string) []string { return simpleFieldTokens(s, seriesStopWords) }

// PublisherTokens tokenizes a publisher name with its stop set.
func PublisherTokens(s string) []string { return simpleFieldTokens(s, publisherStopWords) }

// TagTokens tokenizes a tag string with the {the, and, a} stop set.
func TagTokens(s string) []string { return simpleFieldTokens(s, tagStopWords) }
