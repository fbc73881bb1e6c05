package relay

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
)

// Operator texts shown when routing cannot proceed.
const (
	noticeUnknownReply = "Не удалось определить пользователя для ответа. Ответьте на сообщение пользователя."
	noticeNoActiveChat = "Нет активного чата с пользователем."
	noticeSendFailed   = "Не удалось отправить сообщение пользователю."
	noticeNoSender     = "Ошибка: не удалось определить ваш ID."
)

const operatorPrefix = "Менеджер: "

// Sender is the transport slice used for relay deliveries. Satisfied by
// *tele.Bot. Relay sends are synchronous and never retried: the caller
// needs the outbound message id or an immediate error to report.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Flow is the questionnaire surface the router defers to.
type Flow interface {
	InProgress(userID int64) bool
	Handle(c tele.Context) error
}

// Operators answers membership questions for the operator set.
type Operators interface {
	IsOperator(userID int64) bool
}

// Router dispatches every non-command message by priority: questionnaire
// first, then operator traffic, then customer relay. Exactly one outbound
// send or one local notice per message.
type Router struct {
	flow      Flow
	operators Operators
	links     *Links
	active    *ActiveSession

	managerChatID int64
	sender        Sender
}

// NewRouter wires the dispatch order around the shared relay structures.
func NewRouter(flow Flow, operators Operators, links *Links, active *ActiveSession, managerChatID int64) *Router {
	return &Router{
		flow:          flow,
		operators:     operators,
		links:         links,
		active:        active,
		managerChatID: managerChatID,
	}
}

// SetSender wires the live transport. Must be called before updates arrive.
func (r *Router) SetSender(s Sender) { r.sender = s }

// Route handles a single incoming message.
func (r *Router) Route(c tele.Context) error {
	from := c.Sender()
	if from == nil {
		logger.RELAY.Warn("message without sender dropped",
			slog.String("event", "relay.no_sender"),
			slog.Int64("chat_id", chatID(c)),
		)
		if c.Chat() != nil {
			return c.Send(noticeNoSender)
		}
		return nil
	}

	if r.flow != nil && r.flow.InProgress(from.ID) {
		return r.flow.Handle(c)
	}
	if r.operators != nil && r.operators.IsOperator(from.ID) {
		return r.routeOperator(c)
	}
	return r.relayCustomer(c, from)
}

// routeOperator resolves the target customer for an operator message:
// explicit replies via the link table, free-form via the active session.
func (r *Router) routeOperator(c tele.Context) error {
	msg := c.Message()
	if msg != nil && msg.ReplyTo != nil {
		userID, ok := r.links.Lookup(msg.ReplyTo.ID)
		if !ok {
			logger.RELAY.Info("reply link not found",
				slog.String("event", "relay.link_miss"),
				slog.Int("message_id", msg.ReplyTo.ID),
			)
			return c.Send(noticeUnknownReply)
		}
		return r.deliverToCustomer(c, userID, "reply")
	}

	userID, ok := r.active.Active()
	if !ok {
		logger.RELAY.Info("no active session for operator message",
			slog.String("event", "relay.no_active"),
		)
		return c.Send(noticeNoActiveChat)
	}
	return r.deliverToCustomer(c, userID, "active")
}

func (r *Router) deliverToCustomer(c tele.Context, userID int64, via string) error {
	text := operatorPrefix + messageText(c)
	if _, err := r.sender.Send(tele.ChatID(userID), text); err != nil {
		logger.RELAY.Error("operator message delivery failed",
			slog.String("event", "send.fail"),
			slog.Int64("user_id", userID),
			slog.String("outcome", via),
			slog.String("err", err.Error()),
		)
		return c.Send(noticeSendFailed)
	}
	logger.RELAY.Info("operator message relayed",
		slog.String("event", "relay.to_customer"),
		slog.Int64("user_id", userID),
		slog.String("outcome", via),
	)
	return nil
}

// relayCustomer forwards an out-of-flow customer message to the operator
// chat, links the outbound id for replies and marks the customer active.
func (r *Router) relayCustomer(c tele.Context, from *tele.User) error {
	body := fmt.Sprintf("Сообщение от %s (%d):\n%s", from.FirstName, from.ID, messageText(c))
	sent, err := r.sender.Send(tele.ChatID(r.managerChatID), body)
	if err != nil {
		logger.RELAY.Error("customer message delivery failed",
			slog.String("event", "send.fail"),
			slog.Int64("user_id", from.ID),
			slog.Int64("chat_id", r.managerChatID),
			slog.String("err", err.Error()),
		)
		return nil
	}

	r.links.Add(sent.ID, from.ID)
	r.active.Set(from.ID)

	logger.RELAY.Info("customer message relayed",
		slog.String("event", "relay.to_operator"),
		slog.Int64("user_id", from.ID),
		slog.Int("message_id", sent.ID),
		slog.Int("link_count", r.links.Len()),
	)
	return nil
}

// messageText extracts the textual payload, falling back to media captions.
func messageText(c tele.Context) string {
	if text := c.Text(); text != "" {
		return text
	}
	if msg := c.Message(); msg != nil && msg.Caption != "" {
		return msg.Caption
	}
	return "[вложение]"
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}
