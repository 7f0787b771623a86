package translate

// SourceLanguage is the language quizzes are authored in.
const SourceLanguage = "en"

var supportedLanguages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ar": "Arabic",
	"hi": "Hindi",
	"tr": "Turkish",
}

// Supported reports whether lang is a known target language code.
func Supported(lang string) bool {
	_, ok := supportedLanguages[lang]
	return ok
}

// Languages returns a copy of the code → display name table.
func Languages() map[string]string {
	out := make(map[string]string, len(supportedLanguages))
	for code, name := range supportedLanguages {
		out[code] = name
	}
	return out
}
