package relay

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
)

const testManagerChat int64 = -100500

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

type fakeContext struct {
	tele.Context

	sender  *tele.User
	text    string
	replyTo *tele.Message

	mu      sync.Mutex
	replies []string
}

func (f *fakeContext) Sender() *tele.User { return f.sender }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Message() *tele.Message {
	if f.sender == nil {
		return nil
	}
	return &tele.Message{Text: f.text, Sender: f.sender, ReplyTo: f.replyTo}
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.sender == nil {
		return nil
	}
	return &tele.Chat{ID: f.sender.ID}
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := what.(string); ok {
		f.replies = append(f.replies, s)
	}
	return nil
}

type sentMessage struct {
	to   tele.Recipient
	text string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	nextID int
	err    error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	text, _ := what.(string)
	f.sent = append(f.sent, sentMessage{to: to, text: text})
	f.nextID++
	return &tele.Message{ID: f.nextID}, nil
}

type fakeFlow struct {
	inFlow  map[int64]bool
	handled []int64
}

func (f *fakeFlow) InProgress(userID int64) bool { return f.inFlow[userID] }

func (f *fakeFlow) Handle(c tele.Context) error {
	f.handled = append(f.handled, c.Sender().ID)
	return nil
}

type fakeOperators map[int64]bool

func (f fakeOperators) IsOperator(userID int64) bool { return f[userID] }

func newTestRouter() (*Router, *fakeFlow, *fakeSender, *Links, *ActiveSession) {
	fl := &fakeFlow{inFlow: make(map[int64]bool)}
	links := NewLinks(8)
	active := NewActiveSession()
	snd := &fakeSender{}
	r := NewRouter(fl, fakeOperators{77: true}, links, active, testManagerChat)
	r.SetSender(snd)
	return r, fl, snd, links, active
}

func TestRouteDispatchesInFlowCustomerToMachine(t *testing.T) {
	r, fl, snd, _, _ := newTestRouter()
	fl.inFlow[10] = true

	c := &fakeContext{sender: &tele.User{ID: 10, FirstName: "Анна"}, text: "ДА"}
	require.NoError(t, r.Route(c))

	assert.Equal(t, []int64{10}, fl.handled)
	assert.Empty(t, snd.sent, "flow messages are never relayed")
}

func TestRouteRelaysCustomerToOperatorChat(t *testing.T) {
	r, _, snd, links, active := newTestRouter()

	c := &fakeContext{sender: &tele.User{ID: 10, FirstName: "Анна"}, text: "хочу дом"}
	require.NoError(t, r.Route(c))

	require.Len(t, snd.sent, 1)
	assert.Equal(t, tele.ChatID(testManagerChat), snd.sent[0].to)
	assert.Equal(t, "Сообщение от Анна (10):\nхочу дом", snd.sent[0].text)

	userID, ok := links.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, int64(10), userID)

	activeID, ok := active.Active()
	require.True(t, ok)
	assert.Equal(t, int64(10), activeID)
}

func TestOperatorReplyRoutedThroughLink(t *testing.T) {
	r, _, snd, links, _ := newTestRouter()
	links.Add(33, 10)

	c := &fakeContext{
		sender:  &tele.User{ID: 77},
		text:    "добрый день",
		replyTo: &tele.Message{ID: 33},
	}
	require.NoError(t, r.Route(c))

	require.Len(t, snd.sent, 1)
	assert.Equal(t, tele.ChatID(int64(10)), snd.sent[0].to)
	assert.Equal(t, "Менеджер: добрый день", snd.sent[0].text)
	assert.Empty(t, c.replies)
}

func TestOperatorReplyWithoutLinkYieldsNotice(t *testing.T) {
	r, _, snd, _, _ := newTestRouter()

	c := &fakeContext{
		sender:  &tele.User{ID: 77},
		text:    "кому это?",
		replyTo: &tele.Message{ID: 999},
	}
	require.NoError(t, r.Route(c))

	assert.Empty(t, snd.sent)
	require.Len(t, c.replies, 1)
	assert.Equal(t, noticeUnknownReply, c.replies[0])
}

func TestOperatorFreeFormGoesToActiveSession(t *testing.T) {
	r, _, snd, _, active := newTestRouter()
	active.Set(10)

	c := &fakeContext{sender: &tele.User{ID: 77}, text: "я на связи"}
	require.NoError(t, r.Route(c))

	require.Len(t, snd.sent, 1)
	assert.Equal(t, tele.ChatID(int64(10)), snd.sent[0].to)
	assert.Equal(t, "Менеджер: я на связи", snd.sent[0].text)
}

func TestOperatorFreeFormWithoutActiveSession(t *testing.T) {
	r, _, snd, _, _ := newTestRouter()

	c := &fakeContext{sender: &tele.User{ID: 77}, text: "есть кто?"}
	require.NoError(t, r.Route(c))

	assert.Empty(t, snd.sent)
	require.Len(t, c.replies, 1)
	assert.Equal(t, noticeNoActiveChat, c.replies[0])
}

func TestOperatorDeliveryFailureNoticed(t *testing.T) {
	r, _, snd, _, active := newTestRouter()
	active.Set(10)
	snd.err = errors.New("forbidden: bot was blocked by the user")

	c := &fakeContext{sender: &tele.User{ID: 77}, text: "ау"}
	require.NoError(t, r.Route(c))

	require.Len(t, c.replies, 1)
	assert.Equal(t, noticeSendFailed, c.replies[0])
}

func TestCustomerDeliveryFailureLeavesStateUntouched(t *testing.T) {
	r, _, snd, links, active := newTestRouter()
	snd.err = errors.New("network down")

	c := &fakeContext{sender: &tele.User{ID: 10, FirstName: "Анна"}, text: "хочу дом"}
	require.NoError(t, r.Route(c))

	assert.Zero(t, links.Len())
	_, ok := active.Active()
	assert.False(t, ok)
}

func TestMessageWithoutSenderDropped(t *testing.T) {
	r, _, snd, _, _ := newTestRouter()

	c := &fakeContext{sender: nil, text: "призрак"}
	require.NoError(t, r.Route(c))

	assert.Empty(t, snd.sent)
	assert.Empty(t, c.replies)
}

func TestActiveSessionFollowsLatestCustomer(t *testing.T) {
	r, _, snd, _, active := newTestRouter()

	for i, id := range []int64{10, 11, 12} {
		c := &fakeContext{
			sender: &tele.User{ID: id, FirstName: fmt.Sprintf("Клиент%d", i)},
			text:   "вопрос",
		}
		require.NoError(t, r.Route(c))
	}

	require.Len(t, snd.sent, 3)
	activeID, ok := active.Active()
	require.True(t, ok)
	assert.Equal(t, int64(12), activeID)
}
