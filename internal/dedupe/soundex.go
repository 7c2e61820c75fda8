package dedupe

import "strings"

// soundexTable maps 'A'-'Z' (index = char-'A') to Knuth's phonetic digit.
const soundexTable = "01230120022455012623010202"

// Soundex returns Knuth's phonetic encoding of s, truncated or zero-padded
// to length. Non-letters are skipped. Consecutive letters mapping to the
// same digit collapse to one; the leading letter is preserved verbatim in
// place of its own digit; all '0' digits are then stripped before padding.
func Soundex(s string, length int) string {
	upper := strings.ToUpper(s)

	var code []byte
	var firstLetter byte
	haveFirst := false
	var prev byte // zero value (NUL) never equals an ASCII digit, so the
	// first letter's digit is always appended regardless of its value.

	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if c < 'A' || c > 'Z' {
			continue
		}
		if !haveFirst {
			firstLetter = c
			haveFirst = true
		}
		digit := soundexTable[c-'A']
		if digit != prev {
			code = append(code, digit)
		}
		prev = digit
	}

	if !haveFirst {
		return padTrunc("", length)
	}
	code[0] = firstLetter

	stripped := make([]byte, 0, len(code))
	for _, c := range code {
		if c != '0' {
			stripped = append(stripped, c)
		}
	}
	return padTrunc(string(stripped), length)
}

func padTrunc(s string, length int) string {
	if length <= 0 {
		return ""
	}
	if len(s) >= length {
		return s[:length]
	}
	return s + strings.Repeat("0", length-len(s))
}
