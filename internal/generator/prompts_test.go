package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_MergesCategoryTemplate(t *testing.T) {
	out := buildPrompt("a bakery in Malmö", "landing", false, nil)

	assert.Contains(t, out, "a bakery in Malmö")
	assert.Contains(t, out, "call to action")
	assert.NotEqual(t, "a bakery in Malmö", out)
}

func TestBuildPrompt_ExpandedSkipsTemplate(t *testing.T) {
	out := buildPrompt("a complete brief already", "landing", true, nil)
	assert.Equal(t, "a complete brief already", out)
}

func TestBuildPrompt_UnknownCategoryPassesThrough(t *testing.T) {
	out := buildPrompt("a site", "spaceship", false, nil)
	assert.Equal(t, "a site", out)
}

func TestBuildPrompt_AppendsMediaURLs(t *testing.T) {
	out := buildPrompt("a site", "", true, []string{
		"https://blob.example.com/hero.png",
		"https://blob.example.com/logo.svg",
	})

	assert.Contains(t, out, "https://blob.example.com/hero.png")
	assert.Contains(t, out, "https://blob.example.com/logo.svg")
}

func TestRefineFallbackPrompt(t *testing.T) {
	out := refineFallbackPrompt("<main/>", "add a footer")
	assert.Contains(t, out, "<main/>")
	assert.Contains(t, out, "add a footer")

	assert.Equal(t, "add a footer", refineFallbackPrompt("", "add a footer"))
}

func TestCategories_CoversAllTemplates(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, len(categoryPrompts))
	for _, c := range cats {
		assert.Contains(t, categoryPrompts, c)
	}
}
