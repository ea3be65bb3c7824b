package classify

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LanguageDetector wraps lingua for checking candidates against a profile's
// language hint. Building the detector loads language models, so one
// instance is shared per process.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

// NewLanguageDetector builds a detector over all supported languages
func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build(),
	}
}

// Matches reports whether text appears to be written in the hinted language
// (ISO 639-1 code, e.g. "en", "ru"). The second return is false when the
// detector could not reach a verdict; callers should treat that as a match.
func (d *LanguageDetector) Matches(text, isoHint string) (matched bool, confident bool) {
	if strings.TrimSpace(text) == "" || isoHint == "" {
		return true, false
	}
	detected, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return true, false
	}
	return strings.EqualFold(detected.IsoCode639_1().String(), isoHint), true
}
