package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Persister is the slice of the persisted store the session list needs.
type Persister interface {
	SaveSessions(sessions []ChatSession) error
	LoadSessions() ([]ChatSession, error)
	DeleteSessions() error
}

// SessionStore owns the ordered session list and the active selection.
// Newly created sessions are prepended, so the head is always the most
// recent. Every mutation is written through to the persister.
type SessionStore struct {
	mu        sync.Mutex
	persister Persister
	sessions  []ChatSession
	currentID string
}

func NewSessionStore(p Persister) *SessionStore {
	return &SessionStore{persister: p}
}

// Load restores the persisted session list and auto-selects the most recent
// session if one exists.
func (s *SessionStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.persister.LoadSessions()
	if err != nil {
		return err
	}
	s.sessions = sessions
	if len(sessions) > 0 {
		s.currentID = sessions[0].ID
	} else {
		s.currentID = ""
	}
	return nil
}

// CreateSession prepends a new empty session and makes it active.
func (s *SessionStore) CreateSession() (ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := ChatSession{
		ID:        uuid.NewString(),
		Title:     defaultTitle,
		Messages:  []ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions = append([]ChatSession{session}, s.sessions...)
	s.currentID = session.ID
	return session, s.save()
}

// SwitchSession makes the named session active. Unknown ids are a no-op.
func (s *SessionStore) SwitchSession(id string) (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.ID == id {
			s.currentID = id
			return cloneSession(session), true
		}
	}
	return ChatSession{}, false
}

// DeleteSession removes the named session. Deleting the active session
// promotes the new head, or clears the selection when none remain. The
// removed session is returned so the caller can release its resources.
func (s *SessionStore) DeleteSession(id string) (ChatSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, session := range s.sessions {
		if session.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ChatSession{}, false, nil
	}
	removed := s.sessions[idx]
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)

	if s.currentID == id {
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		} else {
			s.currentID = ""
		}
	}
	return cloneSession(removed), true, s.save()
}

// UpdateSession replaces the named session's message list, recomputing
// updatedAt and the derived title.
func (s *SessionStore) UpdateSession(id string, messages []ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID != id {
			continue
		}
		msgs := make([]ChatMessage, len(messages))
		copy(msgs, messages)
		for j := range msgs {
			msgs[j].IsStreaming = false
		}
		s.sessions[i].Messages = msgs
		s.sessions[i].UpdatedAt = time.Now()
		s.sessions[i].Title = DeriveTitle(msgs)
		return s.save()
	}
	return nil
}

// ClearAll empties the session list and removes the persisted entry.
func (s *SessionStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.currentID = ""
	return s.persister.DeleteSessions()
}

func (s *SessionStore) Sessions() []ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ChatSession, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = cloneSession(session)
	}
	return out
}

func (s *SessionStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Current returns the active session, if any.
func (s *SessionStore) Current() (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.ID == s.currentID {
			return cloneSession(session), true
		}
	}
	return ChatSession{}, false
}

func (s *SessionStore) save() error {
	return s.persister.SaveSessions(s.sessions)
}

func cloneSession(in ChatSession) ChatSession {
	out := in
	out.Messages = make([]ChatMessage, len(in.Messages))
	copy(out.Messages, in.Messages)
	return out
}
