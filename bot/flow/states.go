package flow

// State identifies a position in the scripted questionnaire.
type State string

const (
	// StateIdle means the customer has no session at all.
	StateIdle State = ""
	// StateAwaitingStart waits for the customer to press the start button.
	StateAwaitingStart State = "awaiting_start"
	// StateAwaitingHouseInterest waits for a reaction to the house pitch.
	StateAwaitingHouseInterest State = "awaiting_house_interest"
	// StateAwaitingFollowupQuestions waits after the first reminder.
	StateAwaitingFollowupQuestions State = "awaiting_followup_questions"
	// StateAwaitingHouseChoice waits after the photo offer.
	StateAwaitingHouseChoice State = "awaiting_house_choice"
	// StateHandedOff marks a conversation taken over by the operator.
	// Terminal until the next /start.
	StateHandedOff State = "handed_off"
)

// InFlow reports whether the state belongs to the active questionnaire.
// Idle and handed-off customers are routed as plain relay traffic.
func (s State) InFlow() bool {
	switch s {
	case StateAwaitingStart, StateAwaitingHouseInterest,
		StateAwaitingFollowupQuestions, StateAwaitingHouseChoice:
		return true
	}
	return false
}
