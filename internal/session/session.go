package session

import (
	"sync"

	"document-chat/internal/helper"
	"document-chat/internal/models"
)

// State is everything one browser session keeps between interactions.
type State struct {
	ID string
	// Uploads are the documents extracted in this session and not yet saved.
	Uploads []models.Document
	// Results describes the files of the last upload action.
	Results []models.UploadResult
	// Question is the last submitted question, shown again in the input.
	Question string
	// Response is the last answer; HasResponse distinguishes an empty answer
	// from no answer yet.
	Response    string
	HasResponse bool
	// Notice is a one-line message about the last action.
	Notice string
}

func (s *State) clone() *State {
	cp := *s
	cp.Uploads = append([]models.Document(nil), s.Uploads...)
	cp.Results = append([]models.UploadResult(nil), s.Results...)
	return &cp
}

// Manager keeps session states in memory. They are lost on restart.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*State
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*State)}
}

// Create starts an empty session with a random id.
func (m *Manager) Create() (*State, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	st := &State{ID: id}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = st
	return st.clone(), nil
}

// Get returns a copy of the session; callers hand it back through Update.
func (m *Manager) Get(id string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return st.clone(), true
}

func (m *Manager) Update(st *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.ID] = st.clone()
}

// ClearNotice empties the notice of a session and leaves everything else as
// it is stored now.
func (m *Manager) ClearNotice(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.sessions[id]; ok {
		st.Notice = ""
	}
}

// Reset drops the uploads and the last answer of a session.
func (m *Manager) Reset(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		m.sessions[id] = &State{ID: id}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
