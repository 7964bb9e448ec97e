package memory

import (
	"hash/fnv"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Tokens splits text into case-folded words. Punctuation separates words.
func Tokens(text string) []string {
	folded := cases.Fold().String(text)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Fingerprint returns the sorted, de-duplicated FNV-64a hashes of the tokens
// of text. Jaccard similarity over fingerprints equals Jaccard similarity
// over the token sets, barring hash collisions.
func Fingerprint(text string) []uint64 {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(tokens))
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok)) //nolint:errcheck
		out = append(out, h.Sum64())
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Similarity returns the Jaccard overlap of the word sets of a and b. It is
// symmetric, 1.0 for identical non-empty sets and 0.0 if either is empty.
func Similarity(a, b string) float64 {
	return Jaccard(Fingerprint(a), Fingerprint(b))
}

// Jaccard computes |a∩b| / |a∪b| over two sorted, de-duplicated
// fingerprints.
func Jaccard(a, b []uint64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var inter int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
