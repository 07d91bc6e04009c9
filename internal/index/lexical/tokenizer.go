package lexical

import (
	"strings"
	"unicode"
)

// minTokenLen drops single-letter fragments left over from French elision
// ("l'amortissement" splits into "l" and "amortissement").
const minTokenLen = 2

// stopwords covers the high-frequency French function words that carry no
// retrieval signal in the accounting corpus.
var stopwords = map[string]struct{}{
	"au": {}, "aux": {}, "avec": {}, "ce": {}, "ces": {}, "cette": {},
	"dans": {}, "de": {}, "des": {}, "du": {}, "elle": {}, "en": {},
	"est": {}, "et": {}, "il": {}, "ils": {}, "la": {}, "le": {},
	"les": {}, "leur": {}, "lui": {}, "mais": {}, "ne": {}, "nous": {},
	"on": {}, "ou": {}, "par": {}, "pas": {}, "pour": {}, "qui": {},
	"que": {}, "sa": {}, "se": {}, "ses": {}, "son": {}, "sont": {},
	"sur": {}, "un": {}, "une": {}, "vous": {},
}

// foldRune maps accented letters used in French to their base form so that
// "dégressif" and "degressif" index and query identically.
func foldRune(r rune) rune {
	switch r {
	case 'à', 'â', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'î', 'ï':
		return 'i'
	case 'ô', 'ö':
		return 'o'
	case 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'œ':
		return 'o'
	default:
		return r
	}
}

// tokenize lowercases, folds diacritics, splits on non-alphanumeric runes
// and removes stopwords and short fragments.
func tokenize(text string) []string {
	lowered := strings.ToLower(text)

	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if len(tok) < minTokenLen {
			return
		}
		if _, stop := stopwords[tok]; stop {
			return
		}
		tokens = append(tokens, tok)
	}

	for _, r := range lowered {
		r = foldRune(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}
