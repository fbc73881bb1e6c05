package notify

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
)

// Sender is the transport slice needed to deliver cards. Satisfied by *tele.Bot.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Customer carries the identity fields shown on a card.
type Customer struct {
	ID        int64
	Username  string
	FirstName string
}

// BuildCard renders the operator-facing card announcing a new customer.
func BuildCard(c Customer) string {
	username := "не указан"
	if c.Username != "" {
		username = "@" + c.Username
	}
	return fmt.Sprintf(
		"❗ Новый клиент:\nUsername: %s\nИмя: %s\nID: %d\n\nЧтобы ответить клиенту, используйте функцию \"Ответ\" на это сообщение.",
		username, c.FirstName, c.ID,
	)
}

// Service delivers customer cards to the operator chat.
type Service struct {
	sender Sender
	chatID int64
}

// NewService wires a card service for the given operator chat.
func NewService(sender Sender, managerChatID int64) *Service {
	return &Service{sender: sender, chatID: managerChatID}
}

// SendCard sends the card synchronously and returns the outbound message
// so the caller can link replies back to the customer. No retries: a lost
// card is reported through the error and logged.
func (s *Service) SendCard(c Customer) (*tele.Message, error) {
	msg, err := s.sender.Send(tele.ChatID(s.chatID), BuildCard(c))
	if err != nil {
		logger.RELAY.Warn("card delivery failed",
			slog.String("event", "card.fail"),
			slog.Int64("user_id", c.ID),
			slog.Int64("chat_id", s.chatID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("notify: send card for %d: %w", c.ID, err)
	}
	logger.RELAY.Info("card delivered",
		slog.String("event", "card.sent"),
		slog.Int64("user_id", c.ID),
		slog.Int("message_id", msg.ID),
	)
	return msg, nil
}
