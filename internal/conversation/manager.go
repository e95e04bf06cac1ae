package conversation

import "sync"

// Manager keeps per-chat conversation state. State is held per chat_id, never
// process-wide, so concurrent chats cannot leak state into each other.
type Manager interface {
	Get(chatID int64) State
	Set(chatID int64, st State)
	Clear(chatID int64)
}

type memoryManager struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryManager constructs an in-memory Manager implementation.
// Conversation state only lives for the process lifetime.
func NewMemoryManager() Manager {
	return &memoryManager{states: make(map[int64]State)}
}

// Get returns the state for a chat if it exists, otherwise the default entry
// state. The engine promotes it to idle when the backing link is verified.
func (m *memoryManager) Get(chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if st, ok := m.states[chatID]; ok {
		return st
	}
	return State{Phase: PhaseAwaitingVerification}
}

// Set stores the state for a chat.
func (m *memoryManager) Set(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = st
}

// Clear removes the state for a chat.
func (m *memoryManager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
}
