package conversation

import "testing"

func TestManagerDefaultsToVerification(t *testing.T) {
	m := NewMemoryManager()
	if st := m.Get(1); st.Phase != PhaseAwaitingVerification {
		t.Fatalf("expected awaiting_verification default, got %s", st.Phase)
	}
}

func TestManagerKeepsStatePerChat(t *testing.T) {
	m := NewMemoryManager()
	m.Set(1, State{Phase: PhaseAwaitingGoalTitle, CategoryID: 3})
	m.Set(2, State{Phase: PhaseIdle})

	if st := m.Get(1); st.Phase != PhaseAwaitingGoalTitle || st.CategoryID != 3 {
		t.Fatalf("unexpected state for chat 1: %+v", st)
	}
	if st := m.Get(2); st.Phase != PhaseIdle {
		t.Fatalf("state leaked across chats: %+v", st)
	}
}

func TestManagerClear(t *testing.T) {
	m := NewMemoryManager()
	m.Set(1, State{Phase: PhaseIdle})
	m.Clear(1)
	if st := m.Get(1); st.Phase != PhaseAwaitingVerification {
		t.Fatalf("expected default after clear, got %+v", st)
	}
}
