package conversation

// Phase identifies a finite-state-machine step of a chat conversation.
type Phase string

const (
	// PhaseAwaitingVerification is the entry phase of an unlinked chat.
	PhaseAwaitingVerification Phase = "awaiting_verification"
	// PhaseIdle indicates there is no active sub-flow with the user.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingCategory waits for the user to pick a category by title.
	PhaseAwaitingCategory Phase = "awaiting_category"
	// PhaseAwaitingGoalTitle waits for the new goal's title.
	PhaseAwaitingGoalTitle Phase = "awaiting_goal_title"
)

// State is the transient per-chat conversation state: the current phase plus
// any in-progress selection. A chat never reverts to
// PhaseAwaitingVerification once linked.
type State struct {
	Phase         Phase
	CategoryID    int64
	CategoryTitle string
}
