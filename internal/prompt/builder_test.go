package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPromptFull(t *testing.T) {
	b := NewBuilder(ModeFull)
	got := b.BuildSystemPrompt(SystemContext{
		Tooling: ToolingSection([]ToolLine{
			{Name: "get_weather", Description: "Current weather for a city"},
			{Name: "get_bitcoin_price", Description: "Current Bitcoin price in USD"},
		}),
	})

	assert.Contains(t, got, "You are Scout")
	assert.Contains(t, got, "- get_weather: Current weather for a city")
	assert.Contains(t, got, "- get_bitcoin_price: Current Bitcoin price in USD")
	assert.Contains(t, got, "Runtime:")
	assert.Contains(t, got, "Current Date & Time:")

	// Tool order follows the given list.
	assert.Less(t, strings.Index(got, "get_weather"), strings.Index(got, "get_bitcoin_price"))
}

func TestBuildSystemPromptMinimalOmitsRuntime(t *testing.T) {
	b := NewBuilder(ModeMinimal)
	got := b.BuildSystemPrompt(SystemContext{})

	assert.NotContains(t, got, "Runtime:")
	assert.Contains(t, got, "Tooling:\nNone.")
	assert.Contains(t, got, defaultGuidance)
}

func TestToolingSectionEmpty(t *testing.T) {
	assert.Empty(t, ToolingSection(nil))
}
