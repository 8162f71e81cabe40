package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePrompt(t *testing.T) {
	assert.NoError(t, ValidatePrompt("build a bakery site"))
	assert.Error(t, ValidatePrompt(""))
	assert.Error(t, ValidatePrompt("   "))
	assert.Error(t, ValidatePrompt(strings.Repeat("x", 100001)))
	assert.Error(t, ValidatePrompt("bad \xff utf8"))
}

func TestValidateChatID(t *testing.T) {
	assert.NoError(t, ValidateChatID("chat_abc-123"))
	assert.Error(t, ValidateChatID(""))
	assert.Error(t, ValidateChatID(strings.Repeat("a", 129)))
	assert.Error(t, ValidateChatID("has space"))
	assert.Error(t, ValidateChatID("has/slash"))
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("app/page.tsx"))
	assert.Error(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName("/etc/passwd"))
	assert.Error(t, ValidateFileName("../secrets.env"))
}
