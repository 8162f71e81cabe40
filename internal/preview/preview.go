// Package preview prepares demo URLs and fallback descriptors for the
// client's preview panel.
package preview

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the preview rendering mode the client should use.
type Mode string

const (
	ModeLive       Mode = "iframe-live"
	ModeScreenshot Mode = "screenshot-fallback"
	ModeEmpty      Mode = "empty"
)

// Descriptor tells the client how to render a preview. The fallback chain is
// live iframe, then screenshot, then nothing.
type Descriptor struct {
	Mode          Mode   `json:"mode"`
	URL           string `json:"url,omitempty"`
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
}

// Describe picks the preview mode for a demo/screenshot pair. forceScreenshot
// honors the user's manual preference for a static preview.
func Describe(demoURL, screenshotURL string, forceScreenshot bool) Descriptor {
	switch {
	case demoURL != "" && !forceScreenshot:
		return Descriptor{Mode: ModeLive, URL: CacheBust(demoURL, time.Now()), ScreenshotURL: screenshotURL}
	case screenshotURL != "":
		return Descriptor{Mode: ModeScreenshot, ScreenshotURL: screenshotURL}
	default:
		return Descriptor{Mode: ModeEmpty}
	}
}

// CacheBust rewrites a demo URL so browsers refetch the document even when
// the upstream returns an unchanged URL string for a new version. Exactly one
// v=<timestamp> parameter ends up in the query, inserted before any fragment;
// the fragment itself is preserved byte for byte.
//
// The rewrite is deliberately lexical: parsing through net/url would
// re-encode the query and fragment, breaking the exact-preservation contract.
func CacheBust(rawURL string, now time.Time) string {
	if rawURL == "" {
		return rawURL
	}

	base := rawURL
	fragment := ""
	if i := strings.Index(rawURL, "#"); i >= 0 {
		base = rawURL[:i]
		fragment = rawURL[i:]
	}

	stamp := fmt.Sprintf("v=%d", now.UnixMilli())

	if qi := strings.Index(base, "?"); qi >= 0 {
		query := base[qi+1:]
		params := strings.Split(query, "&")
		kept := params[:0]
		for _, p := range params {
			if p == "" || p == "v" || strings.HasPrefix(p, "v=") {
				continue
			}
			kept = append(kept, p)
		}
		kept = append(kept, stamp)
		base = base[:qi+1] + strings.Join(kept, "&")
	} else {
		base = base + "?" + stamp
	}

	return base + fragment
}
