// Package persona assembles the prompts for the companion. The core
// treats these as opaque strings; only the inputs (user name, profile
// snapshot, recalled memories, transcript) are part of the contract.
package persona

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aanya-ai/aanya/core"
)

// Persona builds prompts for one named companion talking to one user.
type Persona struct {
	companionName string
	userName      string
}

// New creates a persona for the given user.
func New(userName string) *Persona {
	return &Persona{companionName: "Aanya", userName: userName}
}

// SystemPrompt renders the conversational system prompt from the
// profile snapshot and recalled memory snippets.
func (p *Persona) SystemPrompt(profile *core.UserProfile, memories []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are %s, %s's close companion. Warm, sharp, a little playful, and genuinely invested in how %s is doing.

Time: %s

How you talk:
- Short, natural replies. One to three sentences for casual chat.
- Longer only when asked for real help (plans, code, decisions).
- Ask at most one question per reply.
- No emojis, no markdown formatting, no headers. Plain conversational text.
- Never call yourself an AI or an assistant. You are just %s.
`, p.companionName, p.userName, p.userName, time.Now().Format("Monday 3:04 PM"), p.companionName)

	if profileText := formatProfile(profile); profileText != "" {
		b.WriteString("\nWhat you know about " + p.userName + ":\n" + profileText + "\n")
	}
	if len(memories) > 0 {
		b.WriteString("\nThings you remember:\n")
		for _, m := range memories {
			b.WriteString("- " + m + "\n")
		}
	}

	b.WriteString("\nReply like yourself. Short, warm, real.")
	return b.String()
}

// ProfileUpdatePrompt asks the model to extract profile facts from the
// transcript. The reply must be JSON over the known profile fields;
// nulls mean nothing new was learned for that field.
func (p *Persona) ProfileUpdatePrompt(profile *core.UserProfile, conversation string) string {
	current, _ := json.MarshalIndent(profile, "", "  ")
	return fmt.Sprintf(`Extract facts about %s from this conversation.

Current profile:
%s

Conversation:
%s

Return ONLY valid JSON in exactly this shape, with null for anything you did not learn:
{"name":null,"nickname":null,"birthday":null,"personality_notes":null,"recent_mood":null,"current_goals":[],"likes":[],"dislikes":[],"extra_notes":[],"relationships":{},"important_dates":{}}`,
		p.userName, current, conversation)
}

// ReflectionPrompt asks the model for a short private diary note about
// the recent conversation.
func (p *Persona) ReflectionPrompt(conversation string) string {
	return fmt.Sprintf(`You are %s. Write a two-sentence private note about your chat with %s: what mattered, and what to follow up on.

Conversation:
%s

Note:`, p.companionName, p.userName, conversation)
}

// UserName returns the name of the user this persona talks to.
func (p *Persona) UserName() string {
	return p.userName
}

func formatProfile(profile *core.UserProfile) string {
	if profile == nil {
		return ""
	}
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Name", profile.Name)
	add("Goes by", profile.Nickname)
	add("Birthday", profile.Birthday)
	add("Goals", strings.Join(profile.CurrentGoals, ", "))
	add("Likes", strings.Join(profile.Likes, ", "))
	add("Dislikes", strings.Join(profile.Dislikes, ", "))
	add("Mood", profile.RecentMood)
	add("Notes", profile.PersonalityNotes)
	for who, rel := range profile.Relationships {
		lines = append(lines, fmt.Sprintf("Knows %s (%s)", who, rel))
	}
	for what, when := range profile.ImportantDates {
		lines = append(lines, fmt.Sprintf("Date to remember: %s on %s", what, when))
	}
	lines = append(lines, profile.ExtraNotes...)
	return strings.Join(lines, "\n")
}
