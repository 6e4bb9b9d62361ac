package domain

import (
	"strings"
	"unicode"
)

const primaPrefix = "prima"

// HumanizeChannelName derives a display name from a raw provider channel
// identifier. The transform is pure and deterministic; channel identity in
// the rendered output depends on it, so the steps are fixed:
//
//  1. underscores become spaces ("nova_sport" -> "nova sport")
//  2. a "prima" prefix followed by a letter gets a space after it
//     ("primaCOOL" -> "prima COOL")
//  3. every lower-to-upper letter transition gets a space
//     ("novaAction" -> "nova Action")
//  4. every word is capitalized, the rest lowered
//     ("prima COOL" -> "Prima Cool")
func HumanizeChannelName(id string) string {
	s := strings.ReplaceAll(id, "_", " ")

	if strings.HasPrefix(s, primaPrefix) && len(s) > len(primaPrefix) {
		rest := []rune(s[len(primaPrefix):])
		if unicode.IsLetter(rest[0]) {
			s = primaPrefix + " " + s[len(primaPrefix):]
		}
	}

	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		wr := []rune(strings.ToLower(w))
		wr[0] = unicode.ToUpper(wr[0])
		words[i] = string(wr)
	}

	return strings.Join(words, " ")
}
