package generator

import (
	"fmt"
	"strings"
)

// categoryPrompts are canned briefs that bias generation toward a known site
// archetype. The user prompt is merged into the template unless the caller
// marks it as already expanded.
var categoryPrompts = map[string]string{
	"landing": `Build a polished single-page marketing site with a hero section,
a feature grid, social proof, and a clear call to action. Use a modern, airy
layout with generous whitespace. Client brief: %s`,
	"dashboard": `Build an analytics dashboard with a sidebar navigation, a top
bar, KPI stat cards, and at least two charts. Keep the layout dense but
readable. Client brief: %s`,
	"ecommerce": `Build an e-commerce storefront with a product grid, product
detail view, cart drawer, and checkout call to action. Client brief: %s`,
	"portfolio": `Build a personal portfolio with a hero introduction, a
project gallery, an about section, and a contact form. Client brief: %s`,
	"blog": `Build a blog front page with a featured post, a post list with
excerpts, tag navigation, and an about sidebar. Client brief: %s`,
}

// Categories lists the known category keys.
func Categories() []string {
	keys := make([]string, 0, len(categoryPrompts))
	for k := range categoryPrompts {
		keys = append(keys, k)
	}
	return keys
}

// buildPrompt assembles the final prompt sent upstream. Merging into a
// category template is controlled by the explicit expanded flag; prompt
// content is never sniffed to guess intent.
func buildPrompt(prompt, category string, expanded bool, mediaURLs []string) string {
	out := prompt
	if tmpl, ok := categoryPrompts[category]; ok && !expanded {
		out = fmt.Sprintf(tmpl, prompt)
	}

	if len(mediaURLs) > 0 {
		var b strings.Builder
		b.WriteString(out)
		b.WriteString("\n\nUse these uploaded images where they fit:\n")
		for _, u := range mediaURLs {
			b.WriteString("- ")
			b.WriteString(u)
			b.WriteString("\n")
		}
		out = b.String()
	}
	return out
}

// refineFallbackPrompt embeds existing code as inline context when a refine
// arrives without a chat to continue.
func refineFallbackPrompt(existingCode, instruction string) string {
	if existingCode == "" {
		return instruction
	}
	return fmt.Sprintf(
		"Here is the current code of the site:\n\n%s\n\nApply this change: %s",
		existingCode, instruction,
	)
}
