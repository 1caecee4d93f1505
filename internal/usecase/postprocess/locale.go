package postprocess

import (
	"regexp"

	"golang.org/x/text/language"
)

const (
	acresToHectares = 0.404686
	kgPerQuintal    = 100.0
)

// India converts dollar amounts to rupees and annotates acres and kilograms.
var India = LocaleRules{
	Name:           "en-IN",
	CurrencySymbol: "₹",
	Units: []UnitRule{
		{
			Pattern:   regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)\s*acres?\b`),
			Canonical: "acres",
			Target:    "hectares",
			Convert:   func(v float64) float64 { return v * acresToHectares },
		},
		{
			Pattern:   regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)\s*(?:kg|kilograms?)\b`),
			Canonical: "kg",
			Target:    "quintals",
			Convert:   func(v float64) float64 { return v / kgPerQuintal },
		},
	},
}

// Identity leaves text untouched apart from trimming.
var Identity = LocaleRules{Name: "und"}

var (
	supported = []language.Tag{
		language.Und,
		language.Hindi,
		language.Marathi,
		language.Punjabi,
		language.Bengali,
		language.Tamil,
		language.Telugu,
		language.Gujarati,
		language.Kannada,
		language.Malayalam,
	}
	matcher = language.NewMatcher(supported)
)

// RulesFor picks the rules for a BCP 47 locale such as "hi-IN" or "en-IN".
// Any locale in India, and any Indian language, gets the India rules.
func RulesFor(locale string) LocaleRules {
	tag, err := language.Parse(locale)
	if err != nil {
		return Identity
	}
	if region, conf := tag.Region(); conf == language.Exact && region.String() == "IN" {
		return India
	}
	_, idx, conf := matcher.Match(tag)
	if idx > 0 && conf >= language.High {
		return India
	}
	return Identity
}
