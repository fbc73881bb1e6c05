package bot

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/bot/flow"
	"github.com/m3rciful/relaybot/bot/notify"
	"github.com/m3rciful/relaybot/config"
	coreconfig "github.com/m3rciful/relaybot/core/config"
	"github.com/m3rciful/relaybot/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Core: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc"},
		},
		Relay: config.RelayConfig{
			ManagerChatID: -100500,
			ManagerIDs:    []int64{77},
		},
		Flow: config.FlowConfig{
			ReminderDelaySeconds: 300,
			OfferPhotoURL:        "https://example.com/house.jpg",
		},
	}
	return cfg
}

type fakeSender struct {
	sent []string
	to   []tele.Recipient
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	f.to = append(f.to, to)
	return &tele.Message{ID: 500 + len(f.sent)}, nil
}

type fakeContext struct {
	tele.Context

	sender  *tele.User
	text    string
	replies []string
}

func (f *fakeContext) Sender() *tele.User { return f.sender }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Message() *tele.Message {
	return &tele.Message{Text: f.text, Sender: f.sender}
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	if s, ok := what.(string); ok {
		f.replies = append(f.replies, s)
	}
	return nil
}

func TestEscalationSendsCardAndLinksIt(t *testing.T) {
	app, err := New(testConfig())
	require.NoError(t, err)

	snd := &fakeSender{}
	app.escalation.cards = notify.NewService(snd, -100500)

	require.NoError(t, app.escalation.Escalate(42, "anna_k", "Анна"))

	require.Len(t, snd.sent, 1)
	assert.Contains(t, snd.sent[0], "❗ Новый клиент:")
	assert.Equal(t, tele.ChatID(int64(-100500)), snd.to[0])

	userID, ok := app.links.Lookup(501)
	require.True(t, ok)
	assert.Equal(t, int64(42), userID)

	activeID, ok := app.active.Active()
	require.True(t, ok)
	assert.Equal(t, int64(42), activeID)
}

func TestEscalationFailureStillMarksActive(t *testing.T) {
	app, err := New(testConfig())
	require.NoError(t, err)

	snd := &fakeSender{err: errors.New("chat not found")}
	app.escalation.cards = notify.NewService(snd, -100500)

	require.Error(t, app.escalation.Escalate(42, "", "Анна"))

	activeID, ok := app.active.Active()
	require.True(t, ok)
	assert.Equal(t, int64(42), activeID)
	assert.Zero(t, app.links.Len())
}

func TestHandOffScenarioEndToEnd(t *testing.T) {
	app, err := New(testConfig())
	require.NoError(t, err)

	snd := &fakeSender{}
	app.escalation.cards = notify.NewService(snd, -100500)

	customer := &tele.User{ID: 42, Username: "anna_k", FirstName: "Анна"}

	require.NoError(t, app.machine.HandleStart(&fakeContext{sender: customer, text: "/start"}))
	require.NoError(t, app.machine.Handle(&fakeContext{sender: customer, text: flow.ButtonStart}))

	c := &fakeContext{sender: customer, text: flow.ButtonYes}
	require.NoError(t, app.machine.Handle(c))

	require.Len(t, snd.sent, 1, "exactly one operator card")
	assert.Contains(t, snd.sent[0], "ID: 42")

	userID, ok := app.links.Lookup(501)
	require.True(t, ok)
	assert.Equal(t, int64(42), userID)

	activeID, ok := app.active.Active()
	require.True(t, ok)
	assert.Equal(t, int64(42), activeID)

	require.NotEmpty(t, c.replies)
	assert.Contains(t, c.replies[len(c.replies)-1], "Зову менеджера")
	assert.Equal(t, flow.StateHandedOff, app.sessions.State(42))
}

func TestManagerCommand(t *testing.T) {
	app, err := New(testConfig())
	require.NoError(t, err)

	granted := &fakeContext{sender: &tele.User{ID: 77}, text: "/manager"}
	require.NoError(t, app.handleManager(granted))
	require.Len(t, granted.replies, 1)
	assert.Equal(t, managerGrantedText, granted.replies[0])

	denied := &fakeContext{sender: &tele.User{ID: 10}, text: "/manager"}
	require.NoError(t, app.handleManager(denied))
	require.Len(t, denied.replies, 1)
	assert.Equal(t, managerDeniedText, denied.replies[0])
}
