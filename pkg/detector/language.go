package detector

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	languageOnce     sync.Once
	languageDetector lingua.LanguageDetector
)

// candidateLanguages keeps the model load small; these cover the bulk of
// scanlation and gallery sites this tool gets pointed at.
var candidateLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Japanese,
	lingua.Korean,
	lingua.Chinese,
}

// DetectLanguage guesses the language of a page title and returns the
// ISO-639-1 code (e.g. "en") with a 0-1 confidence. Empty or undecidable
// input yields ("", 0).
func DetectLanguage(text string) (string, float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0
	}

	languageOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidateLanguages...).
			Build()
	})

	lang, ok := languageDetector.DetectLanguageOf(text)
	if !ok {
		return "", 0
	}
	confidence := languageDetector.ComputeLanguageConfidence(text, lang)
	return strings.ToLower(lang.IsoCode639_1().String()), confidence
}
