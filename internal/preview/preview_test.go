package preview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.UnixMilli(1700000000000)

func TestCacheBust_NoQuery(t *testing.T) {
	got := CacheBust("https://demo.v0.dev/abc", testNow)
	assert.Equal(t, "https://demo.v0.dev/abc?v=1700000000000", got)
}

func TestCacheBust_ExistingQueryPreserved(t *testing.T) {
	got := CacheBust("https://demo.v0.dev/abc?theme=dark", testNow)
	assert.Equal(t, "https://demo.v0.dev/abc?theme=dark&v=1700000000000", got)
}

func TestCacheBust_ReplacesExistingStamp(t *testing.T) {
	got := CacheBust("https://demo.v0.dev/abc?v=123&theme=dark", testNow)

	assert.Equal(t, 1, strings.Count(got, "v="), "exactly one v parameter: %s", got)
	assert.Contains(t, got, "v=1700000000000")
	assert.Contains(t, got, "theme=dark")
	assert.NotContains(t, got, "v=123")
}

func TestCacheBust_FragmentPreservedByteForByte(t *testing.T) {
	got := CacheBust("https://demo.v0.dev/abc#sec%20tion/ра", testNow)
	assert.Equal(t, "https://demo.v0.dev/abc?v=1700000000000#sec%20tion/ра", got)

	got = CacheBust("https://demo.v0.dev/abc?a=1#frag", testNow)
	assert.Equal(t, "https://demo.v0.dev/abc?a=1&v=1700000000000#frag", got)
}

func TestCacheBust_EmptyURL(t *testing.T) {
	assert.Equal(t, "", CacheBust("", testNow))
}

func TestDescribe_FallbackChain(t *testing.T) {
	d := Describe("https://demo.v0.dev/abc", "https://shots.v0.dev/abc.png", false)
	assert.Equal(t, ModeLive, d.Mode)
	assert.Contains(t, d.URL, "https://demo.v0.dev/abc?v=")

	d = Describe("https://demo.v0.dev/abc", "https://shots.v0.dev/abc.png", true)
	assert.Equal(t, ModeScreenshot, d.Mode)
	assert.Empty(t, d.URL)

	d = Describe("", "https://shots.v0.dev/abc.png", false)
	assert.Equal(t, ModeScreenshot, d.Mode)

	d = Describe("", "", false)
	assert.Equal(t, ModeEmpty, d.Mode)
}
