package model

// Quality is a user-facing generation quality tier.
type Quality string

const (
	QualityLight    Quality = "light"
	QualityStandard Quality = "standard"
	QualityPro      Quality = "pro"
	QualityPremium  Quality = "premium"
	QualityMax      Quality = "max"
)

// DefaultQuality is used when a request does not name a tier.
const DefaultQuality = QualityStandard

// modelMap maps every quality tier to exactly one backend model id.
var modelMap = map[Quality]string{
	QualityLight:    "v0-mini",
	QualityStandard: "v0-pro",
	QualityPro:      "v0-pro",
	QualityPremium:  "v0-max",
	QualityMax:      "v0-max",
}

// ModelFor returns the backend model id for a quality tier. Unknown tiers
// fall back to the standard model so the mapping is total.
func ModelFor(q Quality) string {
	if m, ok := modelMap[q]; ok {
		return m
	}
	return modelMap[DefaultQuality]
}

// Qualities lists all valid tiers.
func Qualities() []Quality {
	return []Quality{QualityLight, QualityStandard, QualityPro, QualityPremium, QualityMax}
}
