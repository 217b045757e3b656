package whisper

import (
	"strings"

	"golang.org/x/text/language"

	"scribe/internal/services"
)

// NormalizeLanguage canonicalizes a user-supplied language hint into the
// two-letter base code the engine expects. Region and script subtags are
// dropped; "en-US" and "english" both normalize to "en".
func NormalizeLanguage(hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", nil
	}

	if code, ok := languageNames[strings.ToLower(hint)]; ok {
		return code, nil
	}

	tag, err := language.Parse(hint)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "engine", "language",
			"unrecognized language hint "+hint, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// Common full-name hints seen in job submissions. Everything else goes
// through BCP 47 parsing.
var languageNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"hindi":      "hi",
}
