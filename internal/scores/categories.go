package scores

import "strings"

// Canonical filter categories. Every raw score key the analysis services
// emit maps onto exactly one of these; keys outside the table are ignored.
const (
	CategoryNudity    = "nudity"
	CategoryImmodesty = "immodesty"
	CategoryViolence  = "violence"
	CategoryProfanity = "profanity"
)

// Categories lists the canonical categories in display order.
var Categories = []string{
	CategoryNudity,
	CategoryImmodesty,
	CategoryViolence,
	CategoryProfanity,
}

// categoryAliases collapses raw score keys onto canonical categories. The
// key set mirrors what the nsfw-detector and content-classifier services
// actually emit, so variants of one category (e.g. general_violence and
// blood) share a single enabled flag and threshold.
var categoryAliases = map[string]string{
	CategoryNudity:    CategoryNudity,
	"full_nudity":     CategoryNudity,
	"partial_nudity":  CategoryNudity,
	"porn":            CategoryNudity,
	"hentai":          CategoryNudity,
	CategoryImmodesty: CategoryImmodesty,
	"suggestive":      CategoryImmodesty,
	"sexy":            CategoryImmodesty,
	"revealing":       CategoryImmodesty,
	CategoryViolence:  CategoryViolence,
	"general_violence": CategoryViolence,
	"blood":            CategoryViolence,
	"weapons":          CategoryViolence,
	"fighting":         CategoryViolence,
	"explosions":       CategoryViolence,
	"death":            CategoryViolence,
	"torture":          CategoryViolence,
	"gore":             CategoryViolence,
	CategoryProfanity:  CategoryProfanity,
	"mild_profanity":   CategoryProfanity,
	"strong_profanity": CategoryProfanity,
	"strong_language":  CategoryProfanity,
}

// CanonicalCategory maps a raw score key to its canonical category. The
// second result is false for keys no category claims.
func CanonicalCategory(rawKey string) (string, bool) {
	canonical, ok := categoryAliases[strings.ToLower(strings.TrimSpace(rawKey))]
	return canonical, ok
}
