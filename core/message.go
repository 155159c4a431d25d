package core

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry in the exact conversation history.
// Messages are immutable once written; ordering is insertion order.
type Message struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Mood      string    `json:"mood,omitempty"`
}

// Turn is the provider-facing view of a message: role and content only.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turns projects messages onto the provider contract.
func Turns(msgs []Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// Session is a lightweight grouping key for messages. No referential
// integrity is enforced beyond the association.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Reflection is one append-only diary entry.
type Reflection struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryKind tags a vector record with its source.
type MemoryKind string

const (
	KindUserMessage MemoryKind = "user_message"
	KindReflection  MemoryKind = "reflection"
)

// MemoryStats aggregates counts across the memory substrates.
type MemoryStats struct {
	TotalMessages  int `json:"total_messages"`
	VectorMemories int `json:"vector_memories"`
	ProfileFilled  int `json:"profile_filled"`
	Reflections    int `json:"reflections"`
}
