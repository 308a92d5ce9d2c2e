package metadata

import (
	"strings"

	"golang.org/x/text/language"
)

const defaultLanguage = "en-US"

// normalizeLanguage converts user supplied tags ("en", "pt_br", "fr-FR") into the
// language-REGION form TMDB expects. A bare language gets its most likely region.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(strings.ReplaceAll(lang, "_", "-"))
	if lang == "" {
		return defaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return defaultLanguage
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	if base.String() == "und" {
		return defaultLanguage
	}
	return base.String() + "-" + region.String()
}
