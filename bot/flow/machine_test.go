package flow

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

type fakeContext struct {
	tele.Context

	sender *tele.User
	text   string

	mu   sync.Mutex
	sent []interface{}
}

func (f *fakeContext) Sender() *tele.User { return f.sender }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Message() *tele.Message {
	return &tele.Message{Text: f.text, Sender: f.sender}
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, item := range f.sent {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

type fakeEscalator struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakeEscalator) Escalate(userID int64, username, firstName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return f.err
}

func (f *fakeEscalator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []interface{}
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, what)
	return &tele.Message{ID: len(f.sent)}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestMachine(delay time.Duration) (*Machine, *Sessions, *fakeEscalator, *fakeSender) {
	sessions := NewSessions()
	reminders := NewScheduler()
	esc := &fakeEscalator{}
	m := NewMachine(sessions, reminders, esc, Options{
		ReminderDelay: delay,
		OfferPhotoURL: "https://example.com/house.jpg",
	})
	snd := &fakeSender{}
	m.SetSender(snd)
	return m, sessions, esc, snd
}

func customerCtx(id int64, name, text string) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: id, FirstName: name, Username: "user"},
		text:   text,
	}
}

func TestStartCommandResetsSession(t *testing.T) {
	m, sessions, _, _ := newTestMachine(time.Hour)

	c := customerCtx(10, "Анна", "/start")
	require.NoError(t, m.HandleStart(c))

	assert.Equal(t, StateAwaitingStart, sessions.State(10))
	texts := c.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Что умеет этот бот?")
}

func TestStartButtonBeginsQuestionnaire(t *testing.T) {
	m, sessions, _, _ := newTestMachine(time.Hour)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))

	c := customerCtx(10, "Анна", ButtonStart)
	require.NoError(t, m.Handle(c))

	assert.Equal(t, StateAwaitingHouseInterest, sessions.State(10))
	texts := c.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Здравствуйте, Анна!")

	sess, ok := sessions.Get(10)
	require.True(t, ok)
	assert.Equal(t, "Анна", sess.FirstName)
}

func TestUnrelatedTextWhileAwaitingStartIgnored(t *testing.T) {
	m, sessions, esc, _ := newTestMachine(time.Hour)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))

	c := customerCtx(10, "Анна", "привет")
	require.NoError(t, m.Handle(c))

	assert.Equal(t, StateAwaitingStart, sessions.State(10))
	assert.Empty(t, c.sentTexts())
	assert.Zero(t, esc.count())
}

func TestAnswerHandsOffAndSendsCardOnce(t *testing.T) {
	m, sessions, esc, _ := newTestMachine(time.Hour)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))

	c := customerCtx(10, "Анна", ButtonYes)
	require.NoError(t, m.Handle(c))

	assert.Equal(t, StateHandedOff, sessions.State(10))
	assert.Equal(t, 1, esc.count())
	texts := c.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Зову менеджера")

	// handed_off is terminal: the machine no longer claims the customer
	assert.False(t, m.InProgress(10))
}

func TestRestartAfterHandOffSendsCardAgain(t *testing.T) {
	m, sessions, esc, _ := newTestMachine(time.Hour)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonYes)))
	require.Equal(t, 1, esc.count())

	// /start drops the card flag with the rest of the session
	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonNo)))

	assert.Equal(t, 2, esc.count())
	assert.Equal(t, StateHandedOff, sessions.State(10))
}

func TestEscalationFailureDoesNotBlockHandOff(t *testing.T) {
	m, sessions, esc, _ := newTestMachine(time.Hour)
	esc.err = errors.New("chat unreachable")

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))

	c := customerCtx(10, "Анна", ButtonYes)
	require.NoError(t, m.Handle(c))

	assert.Equal(t, StateHandedOff, sessions.State(10))
	require.Len(t, c.sentTexts(), 1)
}

func TestReminderChainAdvancesSilentCustomer(t *testing.T) {
	m, sessions, _, snd := newTestMachine(20 * time.Millisecond)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))

	require.Eventually(t, func() bool {
		return sessions.State(10) == StateAwaitingFollowupQuestions
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return snd.count() >= 1 }, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return sessions.State(10) == StateAwaitingHouseChoice
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return snd.count() >= 2 }, 2*time.Second, 5*time.Millisecond)

	// second prompt is the photo offer
	snd.mu.Lock()
	defer snd.mu.Unlock()
	photo, ok := snd.sent[1].(*tele.Photo)
	require.True(t, ok)
	assert.Contains(t, photo.Caption, "55 190")
}

func TestReplyCancelsPendingReminder(t *testing.T) {
	m, sessions, _, snd := newTestMachine(30 * time.Millisecond)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonYes)))

	assert.Equal(t, StateHandedOff, sessions.State(10))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, snd.count(), "no reminder prompt after hand-off")
}

func TestRestartSupersedesReminder(t *testing.T) {
	m, sessions, _, snd := newTestMachine(30 * time.Millisecond)

	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))
	require.NoError(t, m.Handle(customerCtx(10, "Анна", ButtonStart)))

	// restart while the first reminder is pending
	require.NoError(t, m.HandleStart(customerCtx(10, "Анна", "/start")))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateAwaitingStart, sessions.State(10))
	assert.Zero(t, snd.count())
}
