package core

import (
	"maps"
	"slices"
	"time"
)

// UserProfile is the single structured record of what the companion knows
// about the user. Exactly one profile exists per deployment; it is created
// on first access and only ever changed through Apply.
type UserProfile struct {
	Name             string            `json:"name,omitempty"`
	Nickname         string            `json:"nickname,omitempty"`
	Birthday         string            `json:"birthday,omitempty"`
	PersonalityNotes string            `json:"personality_notes,omitempty"`
	RecentMood       string            `json:"recent_mood,omitempty"`
	CurrentGoals     []string          `json:"current_goals,omitempty"`
	Likes            []string          `json:"likes,omitempty"`
	Dislikes         []string          `json:"dislikes,omitempty"`
	ExtraNotes       []string          `json:"extra_notes,omitempty"`
	Relationships    map[string]string `json:"relationships,omitempty"`
	ImportantDates   map[string]string `json:"important_dates,omitempty"`
	LastUpdated      time.Time         `json:"last_updated,omitzero"`
}

// ProfilePatch is a partial profile update, typically extracted by the
// model from recent conversation. Nil fields mean "no change"; they never
// clear an existing value.
type ProfilePatch struct {
	Name             *string           `json:"name"`
	Nickname         *string           `json:"nickname"`
	Birthday         *string           `json:"birthday"`
	PersonalityNotes *string           `json:"personality_notes"`
	RecentMood       *string           `json:"recent_mood"`
	CurrentGoals     []string          `json:"current_goals"`
	Likes            []string          `json:"likes"`
	Dislikes         []string          `json:"dislikes"`
	ExtraNotes       []string          `json:"extra_notes"`
	Relationships    map[string]string `json:"relationships"`
	ImportantDates   map[string]string `json:"important_dates"`
}

// MergeStrategy selects how a patch field folds into the profile.
type MergeStrategy int

const (
	// LastWriteWins replaces the existing scalar with the incoming value.
	LastWriteWins MergeStrategy = iota
	// SetUnion appends incoming items not already present; duplicates collapse.
	SetUnion
	// KeyMerge overwrites per key, keeping keys the patch does not mention.
	KeyMerge
)

// ProfileField describes one profile field and its merge strategy.
type ProfileField struct {
	Name     string
	Strategy MergeStrategy
	merge    func(p *UserProfile, patch *ProfilePatch) bool
}

// ProfileSchema is the fixed set of mergeable profile fields. Merge
// behavior is driven by this table rather than runtime type inspection.
var ProfileSchema = []ProfileField{
	{"name", LastWriteWins, func(p *UserProfile, q *ProfilePatch) bool { return mergeScalar(&p.Name, q.Name) }},
	{"nickname", LastWriteWins, func(p *UserProfile, q *ProfilePatch) bool { return mergeScalar(&p.Nickname, q.Nickname) }},
	{"birthday", LastWriteWins, func(p *UserProfile, q *ProfilePatch) bool { return mergeScalar(&p.Birthday, q.Birthday) }},
	{"personality_notes", LastWriteWins, func(p *UserProfile, q *ProfilePatch) bool {
		return mergeScalar(&p.PersonalityNotes, q.PersonalityNotes)
	}},
	{"recent_mood", LastWriteWins, func(p *UserProfile, q *ProfilePatch) bool { return mergeScalar(&p.RecentMood, q.RecentMood) }},
	{"current_goals", SetUnion, func(p *UserProfile, q *ProfilePatch) bool { return mergeSet(&p.CurrentGoals, q.CurrentGoals) }},
	{"likes", SetUnion, func(p *UserProfile, q *ProfilePatch) bool { return mergeSet(&p.Likes, q.Likes) }},
	{"dislikes", SetUnion, func(p *UserProfile, q *ProfilePatch) bool { return mergeSet(&p.Dislikes, q.Dislikes) }},
	{"extra_notes", SetUnion, func(p *UserProfile, q *ProfilePatch) bool { return mergeSet(&p.ExtraNotes, q.ExtraNotes) }},
	{"relationships", KeyMerge, func(p *UserProfile, q *ProfilePatch) bool { return mergeMap(&p.Relationships, q.Relationships) }},
	{"important_dates", KeyMerge, func(p *UserProfile, q *ProfilePatch) bool { return mergeMap(&p.ImportantDates, q.ImportantDates) }},
}

// Apply folds a patch into the profile according to ProfileSchema and
// reports whether anything changed. LastUpdated is stamped on change.
// Applying the same patch twice is a no-op for set and map fields.
func (p *UserProfile) Apply(patch *ProfilePatch) bool {
	if patch == nil {
		return false
	}
	changed := false
	for _, f := range ProfileSchema {
		if f.merge(p, patch) {
			changed = true
		}
	}
	if changed {
		p.LastUpdated = time.Now()
	}
	return changed
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	cp.CurrentGoals = slices.Clone(p.CurrentGoals)
	cp.Likes = slices.Clone(p.Likes)
	cp.Dislikes = slices.Clone(p.Dislikes)
	cp.ExtraNotes = slices.Clone(p.ExtraNotes)
	cp.Relationships = maps.Clone(p.Relationships)
	cp.ImportantDates = maps.Clone(p.ImportantDates)
	return &cp
}

// FilledFields counts data fields that hold at least one value.
func (p *UserProfile) FilledFields() int {
	n := 0
	for _, s := range []string{p.Name, p.Nickname, p.Birthday, p.PersonalityNotes, p.RecentMood} {
		if s != "" {
			n++
		}
	}
	for _, l := range [][]string{p.CurrentGoals, p.Likes, p.Dislikes, p.ExtraNotes} {
		if len(l) > 0 {
			n++
		}
	}
	for _, m := range []map[string]string{p.Relationships, p.ImportantDates} {
		if len(m) > 0 {
			n++
		}
	}
	return n
}

// mergeScalar overwrites dst when the patch carries a non-empty value.
// Nil and empty strings both mean "no change", so a model emitting "" for
// an unknown field never blanks what we already know.
func mergeScalar(dst *string, src *string) bool {
	if src == nil || *src == "" || *src == *dst {
		return false
	}
	*dst = *src
	return true
}

func mergeSet(dst *[]string, src []string) bool {
	changed := false
	for _, item := range src {
		if item == "" || slices.Contains(*dst, item) {
			continue
		}
		*dst = append(*dst, item)
		changed = true
	}
	return changed
}

func mergeMap(dst *map[string]string, src map[string]string) bool {
	changed := false
	for k, v := range src {
		if k == "" {
			continue
		}
		if cur, ok := (*dst)[k]; ok && cur == v {
			continue
		}
		if *dst == nil {
			*dst = make(map[string]string)
		}
		(*dst)[k] = v
		changed = true
	}
	return changed
}
