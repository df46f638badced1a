package ingest

import (
	"github.com/abadojack/whatlanggo"
)

// minLangSampleLen guards detection against tiny snippets, which the
// trigram model misclassifies freely.
const minLangSampleLen = 40

// DetectLanguage returns the ISO 639-1 code for the dominant language of
// the text, or "" when detection is unreliable.
func DetectLanguage(text string) string {
	if len(text) < minLangSampleLen {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
