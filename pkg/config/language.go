package config

import "strings"

// languageAliases maps accepted language spellings to canonical tags.
// Lookup is case-insensitive.
var languageAliases = map[string]string{
	"zh":      "zh_CN",
	"zh_cn":   "zh_CN",
	"zh-cn":   "zh_CN",
	"chinese": "zh_CN",
	"en":      "en_US",
	"en_us":   "en_US",
	"en-us":   "en_US",
	"english": "en_US",
}

// normalizeLanguage resolves a language tag to its canonical form.
// Returns false for tags that do not name a supported language.
func normalizeLanguage(tag string) (string, bool) {
	canonical, ok := languageAliases[strings.ToLower(tag)]
	return canonical, ok
}
