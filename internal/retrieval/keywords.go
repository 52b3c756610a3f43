package retrieval

import "strings"

// stopWords are common Turkish function words that carry no schema meaning.
var stopWords = map[string]bool{
	"bir": true, "bu": true, "şu": true, "o": true, "de": true, "da": true,
	"ve": true, "ile": true, "için": true, "mi": true, "mı": true, "mu": true,
	"mü": true, "ne": true, "kaç": true, "nasıl": true, "neden": true,
	"hangi": true, "kim": true, "nerede": true, "gibi": true, "daha": true,
	"en": true,
}

// Keywords returns the lowercased words of question, stripped of surrounding
// punctuation, that are not stop words and are longer than two characters.
func Keywords(question string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, "?!.,;:'\"()")
		if stopWords[w] || len([]rune(w)) <= 2 {
			continue
		}
		out = append(out, w)
	}
	return out
}
