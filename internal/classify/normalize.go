package classify

import (
	"strings"
	"unicode"
)

// cyrillicToLatin transliterates the Cyrillic characters common in Uzbek and
// Russian group titles. Multi-letter digraphs come first so "ш" becomes "sh"
// rather than being dropped.
var cyrillicToLatin = map[rune]string{
	'ш': "sh", 'ч': "ch", 'ў': "o", 'ғ': "g", 'қ': "q", 'ҳ': "h",
	'ю': "yu", 'я': "ya", 'ё': "yo", 'ц': "ts", 'щ': "sh", 'ы': "y",
	'э': "e", 'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ж': "j", 'з': "z", 'и': "i", 'й': "y", 'к': "k",
	'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h",
}

// latinFold strips the diacritics that actually show up in group titles.
var latinFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a', 'ā': 'a',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o', 'ō': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
	'ç': 'c', 'ñ': 'n', 'ş': 's', 'ğ': 'g', 'ı': 'i',
}

// Normalize prepares text for matching: lowercase, transliterate Cyrillic to
// Latin, fold diacritics, delete everything that is not a letter, digit or
// space, and collapse runs of whitespace. Emoji vanish without splitting the
// word around them, so "I🇺🇿ELTS" normalizes to "ielts".
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := cyrillicToLatin[r]; ok {
			b.WriteString(mapped)
			continue
		}
		if folded, ok := latinFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteByte(' ')
			continue
		}
		// Combining marks and modifier letters (the Uzbek ʻ okina) carry no
		// matching signal.
		if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Lm, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
		// Everything else (emoji, punctuation, symbols) is deleted outright
		// rather than replaced by a space: emoji interleave inside words.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
