// Package memory keeps a bounded, importance-ranked list of short facts
// extracted from conversations, and formats the most important ones into a
// context block for future requests.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	maxItems        = 50
	contextItems    = 10
	defaultRelevant = 5
)

const (
	TypePreference = "preference"
	TypeFact       = "fact"
	TypeContext    = "context"
)

type Item struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	Importance int       `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
	Tags       []string  `json:"tags"`
}

// Persister is the slice of the persisted store the tracker needs.
type Persister interface {
	SaveMemories(items []Item) error
	LoadMemories() ([]Item, error)
	DeleteMemories() error
}

type Tracker struct {
	mu        sync.Mutex
	persister Persister
	items     []Item
}

func NewTracker(p Persister) *Tracker {
	return &Tracker{persister: p}
}

func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	items, err := t.persister.LoadMemories()
	if err != nil {
		return err
	}
	t.items = items
	return nil
}

// Add records a new memory unless its content duplicates an existing one:
// a candidate whose text contains, or is contained by, an existing item's
// text (case-insensitive) is silently dropped. The list is kept sorted by
// descending importance and trimmed to the 50 most important entries; the
// sort is stable, so ties keep insertion order.
func (t *Tracker) Add(content, kind string, importance int, tags []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	candidate := strings.ToLower(content)
	for _, existing := range t.items {
		existingLower := strings.ToLower(existing.Content)
		if strings.Contains(existingLower, candidate) || strings.Contains(candidate, existingLower) {
			return nil
		}
	}

	item := Item{
		ID:         uuid.NewString(),
		Content:    content,
		Type:       kind,
		Importance: importance,
		Timestamp:  time.Now(),
		Tags:       tags,
	}
	t.items = append([]Item{item}, t.items...)
	sort.SliceStable(t.items, func(a, b int) bool {
		return t.items[a].Importance > t.items[b].Importance
	})
	if len(t.items) > maxItems {
		t.items = t.items[:maxItems]
	}
	return t.persister.SaveMemories(t.items)
}

// Context formats the top memories as an instruction block appended to the
// system preamble. Empty when no memories exist.
func (t *Tracker) Context() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.items) == 0 {
		return ""
	}
	top := t.items
	if len(top) > contextItems {
		top = top[:contextItems]
	}

	var b strings.Builder
	b.WriteString("\n\nIMPORTANT CONTEXT FROM PREVIOUS CONVERSATIONS:\n")
	for _, item := range top {
		b.WriteString("- " + item.Content + "\n")
	}
	b.WriteString("\nRemember to use this context appropriately in your responses.")
	return b.String()
}

// Relevant returns up to limit memories whose content or tags contain the
// query, most important first. A non-positive limit means the default of 5.
func (t *Tracker) Relevant(query string, limit int) []Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 {
		limit = defaultRelevant
	}
	queryLower := strings.ToLower(query)

	out := make([]Item, 0, limit)
	for _, item := range t.items {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(item.Content), queryLower) {
			out = append(out, item)
			continue
		}
		for _, tag := range item.Tags {
			if strings.Contains(strings.ToLower(tag), queryLower) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Clear empties the collection and removes the persisted entry.
func (t *Tracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = nil
	return t.persister.DeleteMemories()
}

func (t *Tracker) Items() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}
