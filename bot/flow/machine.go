package flow

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
	tghelpers "github.com/m3rciful/relaybot/core/telegram/helpers"
	"github.com/m3rciful/relaybot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/relaybot/core/telegram/sender"
)

// Sender is the transport slice the machine needs for reminder prompts.
// Satisfied by *tele.Bot.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Escalator announces a customer to the operator side at hand-off time:
// card delivery, reply linking, active-session update.
type Escalator interface {
	Escalate(userID int64, username, firstName string) error
}

// Options configure the conversation machine.
type Options struct {
	ReminderDelay time.Duration
	OfferPhotoURL string
}

// Machine drives the scripted questionnaire. Incoming messages from
// customers with an in-flow state must be dispatched here by the router.
type Machine struct {
	sessions  *Sessions
	reminders *Scheduler
	escalator Escalator
	locks     *perUserLocks

	delay    time.Duration
	offerURL string

	// set once before polling starts
	sender     Sender
	dispatcher *tgsender.Dispatcher
}

// NewMachine builds the questionnaire machine around shared stores.
func NewMachine(sessions *Sessions, reminders *Scheduler, escalator Escalator, opts Options) *Machine {
	return &Machine{
		sessions:  sessions,
		reminders: reminders,
		escalator: escalator,
		locks:     newPerUserLocks(),
		delay:     opts.ReminderDelay,
		offerURL:  opts.OfferPhotoURL,
	}
}

// SetSender wires the live transport. Must be called before updates arrive.
func (m *Machine) SetSender(s Sender) { m.sender = s }

// SetDispatcher wires the async outbound queue used for reminder prompts.
func (m *Machine) SetDispatcher(d *tgsender.Dispatcher) { m.dispatcher = d }

// InProgress reports whether the customer is inside the questionnaire.
func (m *Machine) InProgress(userID int64) bool {
	return m.sessions.InFlow(userID)
}

// HandleStart processes /start: any previous session is dropped, pending
// reminders are superseded, and the customer lands in awaiting_start.
func (m *Machine) HandleStart(c tele.Context) error {
	from := c.Sender()
	if from == nil {
		return nil
	}
	lock := m.locks.get(from.ID)
	lock.Lock()
	defer lock.Unlock()

	m.reminders.Cancel(from.ID)
	m.sessions.Clear(from.ID)
	m.sessions.SetState(from.ID, StateAwaitingStart)

	logger.FLOW.Info("flow started",
		slog.String("event", "flow.start"),
		slog.Int64("user_id", from.ID),
	)
	return tghelpers.SendWithKeyboard(c, greetingText, startKeyboard())
}

// Handle processes a message from a customer with an in-flow state.
func (m *Machine) Handle(c tele.Context) error {
	from := c.Sender()
	if from == nil {
		return nil
	}
	lock := m.locks.get(from.ID)
	lock.Lock()
	defer lock.Unlock()

	switch m.sessions.State(from.ID) {
	case StateAwaitingStart:
		if c.Text() != ButtonStart {
			// Only the start button advances; anything else is ignored.
			return nil
		}
		return m.beginQuestionnaire(c, from)
	case StateAwaitingHouseInterest, StateAwaitingFollowupQuestions, StateAwaitingHouseChoice:
		return m.handOff(c, from)
	default:
		return nil
	}
}

func (m *Machine) beginQuestionnaire(c tele.Context, from *tele.User) error {
	m.sessions.SetFirstName(from.ID, from.FirstName)
	m.sessions.SetState(from.ID, StateAwaitingHouseInterest)
	m.scheduleFollowup(from.ID)

	logger.FLOW.Info("questionnaire began",
		slog.String("event", "flow.begin"),
		slog.Int64("user_id", from.ID),
		slog.String("state", string(StateAwaitingHouseInterest)),
	)
	return tghelpers.SendWithKeyboard(c, interestText(from.FirstName), yesNoKeyboard())
}

// handOff escalates any in-flow answer to the operator. The card is sent
// at most once per /start cycle; delivery problems do not unset the flag
// and do not roll the state back.
func (m *Machine) handOff(c tele.Context, from *tele.User) error {
	m.reminders.Cancel(from.ID)

	if m.sessions.MarkCardSent(from.ID) {
		if err := m.escalator.Escalate(from.ID, from.Username, from.FirstName); err != nil {
			logger.FLOW.Warn("escalation incomplete",
				slog.String("event", "flow.escalate_fail"),
				slog.Int64("user_id", from.ID),
				slog.String("err", err.Error()),
			)
		}
	}
	m.sessions.SetState(from.ID, StateHandedOff)

	logger.FLOW.Info("handed off to operator",
		slog.String("event", "flow.handoff"),
		slog.Int64("user_id", from.ID),
	)
	return tghelpers.SendWithKeyboard(c, handOffText, keyboard.RemoveKeyboard())
}

func (m *Machine) scheduleFollowup(userID int64) {
	m.reminders.Schedule(userID, StateAwaitingHouseInterest, m.delay, func(itemID string) {
		m.fireFollowup(userID, itemID)
	})
}

// fireFollowup is the first silence reminder: asks about questions and
// moves the customer forward in the script.
func (m *Machine) fireFollowup(userID int64, itemID string) {
	lock := m.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := m.sessions.Get(userID)
	if !ok || sess.State != StateAwaitingHouseInterest {
		m.logStale(userID, itemID, sess.State, StateAwaitingHouseInterest)
		return
	}
	m.sessions.SetState(userID, StateAwaitingFollowupQuestions)
	m.sendPrompt(userID, itemID, "reminder.followup", followupText(sess.FirstName), followupKeyboard())

	m.reminders.Schedule(userID, StateAwaitingFollowupQuestions, m.delay, func(nextID string) {
		m.fireOffer(userID, nextID)
	})
}

// fireOffer is the second and final reminder: the photo offer.
func (m *Machine) fireOffer(userID int64, itemID string) {
	lock := m.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := m.sessions.Get(userID)
	if !ok || sess.State != StateAwaitingFollowupQuestions {
		m.logStale(userID, itemID, sess.State, StateAwaitingFollowupQuestions)
		return
	}
	m.sessions.SetState(userID, StateAwaitingHouseChoice)
	photo := &tele.Photo{File: tele.FromURL(m.offerURL), Caption: offerCaption}
	m.sendPrompt(userID, itemID, "reminder.offer", photo, houseChoiceKeyboard())
}

func (m *Machine) logStale(userID int64, itemID string, got, expected State) {
	logger.FLOW.Debug("stale reminder dropped",
		slog.String("event", "reminder.stale"),
		slog.String("reminder_id", itemID),
		slog.Int64("user_id", userID),
		slog.String("state", string(got)),
		slog.String("expected", string(expected)),
	)
}

// sendPrompt delivers a scripted prompt outside any handler context.
// Prompts carry no routing side effects, so they go through the async
// dispatcher when available and may be retried on transient errors.
func (m *Machine) sendPrompt(userID int64, itemID, action string, what interface{}, markup *tele.ReplyMarkup) {
	snd := m.sender
	if snd == nil {
		logger.FLOW.Warn("prompt skipped: no transport",
			slog.String("event", "reminder.skip"),
			slog.String("reminder_id", itemID),
			slog.Int64("user_id", userID),
		)
		return
	}
	run := func() error {
		_, err := snd.Send(tele.ChatID(userID), what, &tele.SendOptions{ReplyMarkup: markup})
		return err
	}
	if m.dispatcher != nil {
		if err := m.dispatcher.Enqueue(logger.Background(), action, "sendMessage", run); err == nil {
			return
		}
	}
	if err := run(); err != nil {
		logger.FLOW.Warn("prompt delivery failed",
			slog.String("event", "reminder.fail"),
			slog.String("action", action),
			slog.String("reminder_id", itemID),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}
