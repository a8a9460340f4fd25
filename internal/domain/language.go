package domain

import "strings"

// Language tags used across the pipeline.
const (
	LangEnglish = "en"
	LangHindi   = "hi"
	LangUnknown = "unknown"
)

// hindiTags are the recogniser outputs treated as Hindi. Hosted
// recognisers report full names ("hindi"), local ones ISO codes.
var hindiTags = map[string]bool{
	"hi":    true,
	"hindi": true,
}

// NormalizeLanguage maps any detected language tag onto a code the
// synthesizer supports: Hindi tags become "hi", everything else
// (including "unknown" and the empty string) becomes "en".
func NormalizeLanguage(tag string) string {
	if hindiTags[strings.ToLower(strings.TrimSpace(tag))] {
		return LangHindi
	}
	return LangEnglish
}
