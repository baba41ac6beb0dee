package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// legalSuffixes are legal-form tokens dropped from the end of company names,
// compared with dots removed.
var legalSuffixes = map[string]bool{
	"gmbh": true, "mbh": true, "ag": true, "ev": true, "kg": true, "kgaa": true,
	"ohg": true, "gbr": true, "ug": true, "se": true, "co": true,
	"ltd": true, "llc": true, "inc": true, "corp": true, "plc": true,
	"bv": true, "nv": true, "sa": true, "sarl": true, "srl": true,
}

// NormalizeCompanyName lowercases the name and strips trailing legal-form
// tokens and their separators, so "Bike Team GmbH" and "bike team" compare
// equal. The first token is always kept.
func NormalizeCompanyName(name string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(name)))

	for len(tokens) > 1 {
		last := strings.Trim(tokens[len(tokens)-1], ",&")
		if last == "" || legalSuffixes[strings.ReplaceAll(last, ".", "")] {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		break
	}

	return strings.TrimRight(strings.Join(tokens, " "), " ,&")
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio returns a 0-100 similarity of a and b that ignores word
// order: tokens are sorted before the strings are compared with Ratio.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

// Ratio is the normalized indel similarity 2*LCS/(len(a)+len(b)) scaled to
// 0-100, computed over runes.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(edlib.LCS(a, b)) / float64(total)
}
