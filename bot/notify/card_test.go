package notify

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func TestBuildCardWithUsername(t *testing.T) {
	card := BuildCard(Customer{ID: 10, Username: "anna_k", FirstName: "Анна"})

	assert.Equal(t,
		"❗ Новый клиент:\nUsername: @anna_k\nИмя: Анна\nID: 10\n\n"+
			"Чтобы ответить клиенту, используйте функцию \"Ответ\" на это сообщение.",
		card,
	)
}

func TestBuildCardWithoutUsername(t *testing.T) {
	card := BuildCard(Customer{ID: 10, FirstName: "Анна"})

	assert.Contains(t, card, "Username: не указан")
	assert.Contains(t, card, "ID: 10")
}

type fakeSender struct {
	to   tele.Recipient
	text string
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.to = to
	f.text, _ = what.(string)
	return &tele.Message{ID: 55}, nil
}

func TestSendCardReturnsOutboundMessage(t *testing.T) {
	snd := &fakeSender{}
	svc := NewService(snd, -100500)

	msg, err := svc.SendCard(Customer{ID: 10, Username: "anna_k", FirstName: "Анна"})
	require.NoError(t, err)
	assert.Equal(t, 55, msg.ID)
	assert.Equal(t, tele.ChatID(int64(-100500)), snd.to)
	assert.Contains(t, snd.text, "❗ Новый клиент:")
}

func TestSendCardPropagatesError(t *testing.T) {
	snd := &fakeSender{err: errors.New("chat not found")}
	svc := NewService(snd, -100500)

	msg, err := svc.SendCard(Customer{ID: 10, FirstName: "Анна"})
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.Contains(t, err.Error(), "chat not found")
}
