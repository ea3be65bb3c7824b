package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "IELTS Group", "ielts group"},
		{"emoji stripped without splitting", "I🇺🇿ELTS", "ielts"},
		{"emoji between words", "IELTS Uzbekistan 🇺🇿 Official", "ielts uzbekistan official"},
		{"punctuation deleted", "Best scam group ever (ielts)", "best scam group ever ielts"},
		{"whitespace collapsed", "english   \t course", "english course"},
		{"cyrillic transliterated", "Ташкент", "tashkent"},
		{"cyrillic digraphs", "школа", "shkola"},
		{"uzbek apostrophe dropped", "o'quv markaz", "oquv markaz"},
		{"diacritics folded", "café zürich", "cafe zurich"},
		{"digits kept", "DTM 2025", "dtm 2025"},
		{"empty", "", ""},
		{"only emoji", "🎓🇺🇿✨", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}
