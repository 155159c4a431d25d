package persona

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanya-ai/aanya/core"
)

func TestSystemPromptIncludesProfileAndMemories(t *testing.T) {
	p := New("Rahul")
	profile := &core.UserProfile{
		Name:          "Rahul",
		Likes:         []string{"filter coffee", "chess"},
		Relationships: map[string]string{"mira": "sister"},
	}

	prompt := p.SystemPrompt(profile, []string{"[Jun 2, 2026 at 9:15 PM] they adopted a cat named Chai"})

	assert.Contains(t, prompt, "You are Aanya, Rahul's close companion")
	assert.Contains(t, prompt, "Likes: filter coffee, chess")
	assert.Contains(t, prompt, "Knows mira (sister)")
	assert.Contains(t, prompt, "Things you remember:")
	assert.Contains(t, prompt, "adopted a cat named Chai")
}

func TestSystemPromptEmptyProfile(t *testing.T) {
	p := New("Rahul")

	prompt := p.SystemPrompt(&core.UserProfile{}, nil)
	assert.NotContains(t, prompt, "What you know about")
	assert.NotContains(t, prompt, "Things you remember:")

	prompt = p.SystemPrompt(nil, nil)
	assert.NotContains(t, prompt, "What you know about")
}

func TestProfileUpdatePromptShapeParsesAsPatch(t *testing.T) {
	p := New("Rahul")
	prompt := p.ProfileUpdatePrompt(&core.UserProfile{}, "user: I love rain\nassistant: Noted!")

	// The shape shown to the model must round-trip through ProfilePatch.
	start := strings.Index(prompt, `{"name":null`)
	require.GreaterOrEqual(t, start, 0)
	var patch core.ProfilePatch
	require.NoError(t, json.Unmarshal([]byte(prompt[start:]), &patch))
	assert.Nil(t, patch.Name)
}

func TestReflectionPromptCarriesTranscript(t *testing.T) {
	p := New("Rahul")
	prompt := p.ReflectionPrompt("user: I got the job!\nassistant: That's huge!")
	assert.Contains(t, prompt, "I got the job!")
	assert.Contains(t, prompt, "You are Aanya")
}

func TestUserName(t *testing.T) {
	assert.Equal(t, "Rahul", New("Rahul").UserName())
}
