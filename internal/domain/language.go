package domain

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoLanguage selects language auto-detection.
const AutoLanguage = "auto"

// Language is a selectable recognition language.
type Language struct {
	Code string // empty for auto-detection
	Name string
}

// IsAuto reports whether this entry means auto-detection.
func (l Language) IsAuto() bool {
	return l.Code == ""
}

// Codes understood by Whisper.
var whisperLanguageCodes = []string{
	"af", "am", "ar", "as", "az", "ba", "be", "bg", "bn", "bo", "br", "bs", "ca", "cs", "cy",
	"da", "de", "el", "en", "es", "et", "eu", "fa", "fi", "fo", "fr", "gl", "gu", "ha", "haw",
	"he", "hi", "hr", "ht", "hu", "hy", "id", "is", "it", "ja", "jw", "ka", "kk", "km", "kn",
	"ko", "la", "lb", "ln", "lo", "lt", "lv", "mg", "mi", "mk", "ml", "mn", "mr", "ms", "mt",
	"my", "ne", "nl", "nn", "no", "oc", "pa", "pl", "ps", "pt", "ro", "ru", "sa", "sd", "si",
	"sk", "sl", "sn", "so", "sq", "sr", "su", "sv", "sw", "ta", "te", "tg", "th", "tk", "tl",
	"tr", "tt", "uk", "ur", "uz", "vi", "yi", "yo", "zh",
}

var supportedLanguages = func() map[string]bool {
	m := make(map[string]bool, len(whisperLanguageCodes))
	for _, code := range whisperLanguageCodes {
		m[code] = true
	}
	return m
}()

// Languages returns auto-detection first, then every supported language
// sorted by English display name.
func Languages() []Language {
	namer := display.English.Languages()
	langs := make([]Language, 0, len(whisperLanguageCodes))
	for _, code := range whisperLanguageCodes {
		langs = append(langs, Language{Code: code, Name: languageName(namer, code)})
	}
	sort.Slice(langs, func(i, j int) bool {
		return strings.ToLower(langs[i].Name) < strings.ToLower(langs[j].Name)
	})

	return append([]Language{{Code: "", Name: "Auto (detect language)"}}, langs...)
}

func languageName(namer display.Namer, code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return code
}

// NormalizeLanguage maps user input to a Whisper language code. Empty and
// "auto" map to "" (auto-detect). Region subtags are dropped ("en-US" -> "en").
func NormalizeLanguage(input string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(input))
	if code == "" || code == AutoLanguage {
		return "", nil
	}
	if supportedLanguages[code] {
		return code, nil
	}

	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", input, err)
	}
	base, _ := tag.Base()
	if supportedLanguages[base.String()] {
		return base.String(), nil
	}
	return "", fmt.Errorf("unsupported language %q", input)
}
