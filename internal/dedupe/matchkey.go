package dedupe

import (
	"regexp"
	"strings"

	derrors "github.com/calibretools/bookdupe/internal/errors"
)

var (
	reLeadingArticle = regexp.MustCompile(`(?i)^(a|the|an)\s+`)
	reSimilarPunct   = regexp.MustCompile(`[\[\](){}<>'";,:#]`)
	reDashDotUnder   = regexp.MustCompile(`[-._]`)
	reWhitespaceRun  = regexp.MustCompile(`\s+`)
)

// AuthorKey is the pair a single author's match key resolves to: a primary
// key and, when the tokenization is order-sensitive, an alternate key under
// which the same book is also inserted so that e.g. "Kevin J Anderson" and
// "Anderson, Kevin J" land in the same candidate bucket.
type AuthorKey struct {
	Primary string
	Alt     *string
}

func similarTitleBase(title string) string {
	t := Fold(title)
	t = reLeadingArticle.ReplaceAllString(t, "")
	t = reSimilarPunct.ReplaceAllString(t, "")
	t = reDashDotUnder.ReplaceAllString(t, " ")
	t = reWhitespaceRun.ReplaceAllString(t, " ")
	return strings.ToLower(strings.TrimSpace(t))
}

func fuzzyTitleBase(title string) string {
	tokens := TitleTokens(title, true)
	for i, tok := range tokens {
		if i > 0 && (tok == "&" || tok == "and" || tok == "or" || tok == "aka") {
			tokens = tokens[:i]
			break
		}
	}
	return strings.Join(tokens, "")
}

// TitleMatchKey builds the match key for a title under the given policy.
func TitleMatchKey(title string, policy Policy, lengths SoundexLengths) (string, error) {
	switch policy {
	case PolicyIdentical:
		return strings.ToLower(title), nil
	case PolicySimilar:
		return similarTitleBase(title), nil
	case PolicySoundex:
		return Soundex(similarTitleBase(title), lengths.Title), nil
	case PolicyFuzzy:
		return fuzzyTitleBase(title), nil
	default:
		return "", derrors.New(derrors.InvalidInput, "unknown title match policy %q", policy)
	}
}

// AuthorMatchKey builds the match-key pair for one author display name
// under the given policy. See spec §4.4: identical and fuzzy never
// populate Alt; similar and soundex may, when token order matters.
func AuthorMatchKey(author string, policy Policy, lengths SoundexLengths) (AuthorKey, error) {
	switch policy {
	case PolicyIdentical:
		return AuthorKey{Primary: strings.ToLower(strings.ReplaceAll(author, "|", ","))}, nil

	case PolicySimilar:
		tokens := AuthorTokens(author, true)
		key := strings.Join(tokens, "")
		ak := AuthorKey{Primary: key}
		if len(tokens) >= 2 {
			rotated := append(append([]string{}, tokens[1:]...), tokens[0])
			rev := strings.Join(rotated, "")
			if rev != key {
				ak.Alt = &rev
			}
		}
		return ak, nil

	case PolicySoundex:
		tokens := AuthorTokens(author, false)
		if len(tokens) <= 1 {
			return AuthorKey{Primary: Soundex(strings.Join(tokens, ""), lengths.Author)}, nil
		}
		moved := append(append([]string{}, tokens[len(tokens)-1]), tokens[:len(tokens)-1]...)
		primary := Soundex(strings.Join(moved, ""), lengths.Author)
		rev := Soundex(strings.Join(tokens, ""), lengths.Author)
		ak := AuthorKey{Primary: primary}
		if rev != primary {
			ak.Alt = &rev
		}
		return ak, nil

	case PolicyFuzzy:
		tokens := AuthorTokens(author, false)
		switch len(tokens) {
		case 0:
			return AuthorKey{Primary: ""}, nil
		case 1:
			return AuthorKey{Primary: tokens[0]}, nil
		default:
			first := []rune(tokens[0])
			firstChar := ""
			if len(first) > 0 {
				firstChar = string(first[0])
			}
			return AuthorKey{Primary: firstChar + tokens[len(tokens)-1]}, nil
		}

	default:
		return AuthorKey{}, derrors.New(derrors.InvalidInput, "unknown author match policy %q", policy)
	}
}

type fieldTokenizer func(string) []string
type fieldFuzzy func([]string) string

func genericFieldMatchKey(s string, policy Policy, tokenize fieldTokenizer, soundexLen int, fuzzy fieldFuzzy) (string, error) {
	switch policy {
	case PolicyIdentical:
		return strings.ToLower(strings.TrimSpace(s)), nil
	case PolicySimilar:
		return strings.Join(tokenize(s), ""), nil
	case PolicySoundex:
		return Soundex(strings.Join(tokenize(s), ""), soundexLen), nil
	case PolicyFuzzy:
		return fuzzy(tokenize(s)), nil
	default:
		return "", derrors.New(derrors.InvalidInput, "unknown match policy %q", policy)
	}
}

func firstTokenFuzzy(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

func publisherFuzzy(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	if len([]rune(tokens[0])) == 1 && len(tokens) >= 2 {
		return tokens[0] + " " + tokens[1]
	}
	return tokens[0]
}

// SeriesMatchKey builds the match key for a series name under the given policy.
func SeriesMatchKey(s string, policy Policy, lengths SoundexLengths) (string, error) {
	return genericFieldMatchKey(s, policy, SeriesTokens, lengths.Series, firstTokenFuzzy)
}

// PublisherMatchKey builds the match key for a publisher name.
func PublisherMatchKey(s string, policy Policy, lengths SoundexLengths) (string, error) {
	return genericFieldMatchKey(s, policy, PublisherTokens, lengths.Publisher, publisherFuzzy)
}

// TagMatchKey builds the match key for a tag.
func TagMatchKey(s string, policy Policy, lengths SoundexLengths) (string, error) {
	return genericFieldMatchKey(s, policy, TagTokens, lengths.Tags, firstTokenFuzzy)
}
