// Package memory is the in-process session store.
package memory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/store"
)

// Store implements store.Store in memory.
type Store struct {
	mu      sync.RWMutex
	session domain.Session
}

var _ store.Store = (*Store)(nil)

// New creates an empty session.
func New() *Store {
	return &Store{session: emptySession()}
}

func emptySession() domain.Session {
	return domain.Session{SchemaVersion: store.SchemaVersion}
}

func (s *Store) appendLocked(role domain.Role, text string, kind domain.Kind, engine domain.EngineID) domain.Message {
	m := domain.Message{
		ID:        store.NewID(),
		Role:      role,
		Text:      text,
		Timestamp: store.Now(),
		Kind:      kind,
		Engine:    engine,
	}
	s.session.Messages = append(s.session.Messages, m)
	return m
}

func (s *Store) AppendUser(text string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(domain.RoleUser, text, "", "")
}

func (s *Store) AppendBot(text string, kind domain.Kind, engine domain.EngineID) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(domain.RoleBot, text, kind, engine)
}

func (s *Store) AppendPlaceholder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(domain.RolePlaceholder, "", "", "").ID
}

func (s *Store) RemovePlaceholder(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.session.Messages, func(m domain.Message) bool {
		return m.ID == id && m.IsPlaceholder()
	})
	if i < 0 {
		return false
	}
	s.session.Messages = slices.Delete(s.session.Messages, i, i+1)
	return true
}

func (s *Store) EditUserMessageAndTruncate(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.session.Messages
	if index < 0 || index >= len(msgs) {
		return fmt.Errorf("%w: %d not in [0, %d)", domain.ErrInvalidIndex, index, len(msgs))
	}
	if msgs[index].Role != domain.RoleUser {
		return fmt.Errorf("%w: message %d is a %s message", domain.ErrInvalidIndex, index, msgs[index].Role)
	}

	// Later messages, pending placeholders included, are discarded. Their
	// generations find nothing to remove when they settle.
	msgs[index].Text = text
	msgs[index].Timestamp = store.Now()
	s.session.Messages = slices.Clip(msgs[:index+1])
	s.session.CurrentSource, s.session.CurrentKind, s.session.CurrentEngine = store.CurrentFrom(s.session.Messages)
	return nil
}

func (s *Store) SetCurrentDiagram(source string, kind domain.Kind, engine domain.EngineID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.CurrentSource = source
	s.session.CurrentKind = kind
	s.session.CurrentEngine = engine
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = emptySession()
}

func (s *Store) Export() ([]byte, error) {
	return store.Encode(s.Snapshot())
}

func (s *Store) Import(data []byte) error {
	sess, err := store.Decode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	return nil
}

func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.session
	out.Messages = slices.Clone(s.session.Messages)
	return out
}

func (s *Store) UserTexts() []string {
	return s.Snapshot().UserTexts()
}
