package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/bot/auth"
	"github.com/m3rciful/relaybot/bot/flow"
	"github.com/m3rciful/relaybot/bot/notify"
	"github.com/m3rciful/relaybot/bot/relay"
	"github.com/m3rciful/relaybot/config"
	"github.com/m3rciful/relaybot/core/logger"
	coretelegram "github.com/m3rciful/relaybot/core/telegram"
	"github.com/m3rciful/relaybot/core/telegram/commands"
)

const (
	managerGrantedText = "Вы успешно стали менеджером!"
	managerDeniedText  = "У вас нет доступа к режиму менеджера."
)

// App wires the relay bot: questionnaire machine, message router,
// operator authorization and card delivery.
type App struct {
	cfg *config.Config

	sessions  *flow.Sessions
	reminders *flow.Scheduler
	links     *relay.Links
	active    *relay.ActiveSession
	operators *auth.Store

	escalation *escalation
	machine    *flow.Machine
	router     *relay.Router
}

// New builds the application graph from validated configuration.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}

	sessions := flow.NewSessions()
	reminders := flow.NewScheduler()
	links := relay.NewLinks(cfg.Relay.LinkCapacity)
	active := relay.NewActiveSession()
	operators := auth.NewStore(cfg.Relay.ManagerIDs)

	esc := &escalation{links: links, active: active}
	machine := flow.NewMachine(sessions, reminders, esc, flow.Options{
		ReminderDelay: time.Duration(cfg.Flow.ReminderDelaySeconds) * time.Second,
		OfferPhotoURL: cfg.Flow.OfferPhotoURL,
	})
	router := relay.NewRouter(machine, operators, links, active, cfg.Relay.ManagerChatID)

	return &App{
		cfg:        cfg,
		sessions:   sessions,
		reminders:  reminders,
		links:      links,
		active:     active,
		operators:  operators,
		escalation: esc,
		machine:    machine,
		router:     router,
	}, nil
}

// TelegramRunOptions assembles the bot runtime configuration.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.machine.HandleStart,
		Description: "Начать диалог",
	})
	reg.RegisterCommand("/manager", commands.Command{
		Handler:     a.handleManager,
		Description: "Режим менеджера",
		Hidden:      true,
	})

	var routes []coretelegram.Route
	for name, cmd := range reg.Commands() {
		routes = append(routes, coretelegram.Route{Endpoint: name, Handler: cmd.Handler})
		for _, alias := range cmd.Aliases {
			routes = append(routes, coretelegram.Route{Endpoint: alias, Handler: cmd.Handler})
		}
	}

	// Everything that is not a command flows through the router. Media
	// endpoints are bound too so attachments still trigger hand-off and
	// relay (captions are forwarded as the textual payload).
	for _, endpoint := range []string{tele.OnText, tele.OnPhoto, tele.OnDocument, tele.OnVideo, tele.OnVoice} {
		routes = append(routes, coretelegram.Route{Endpoint: endpoint, Handler: a.router.Route})
	}

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.machine.SetSender(rt.Bot)
	a.machine.SetDispatcher(rt.Dispatcher)
	a.router.SetSender(rt.Bot)
	a.escalation.cards = notify.NewService(rt.Bot, a.cfg.Relay.ManagerChatID)

	logger.L.With("component", "app").Info("relay wired",
		slog.String("event", "wired"),
		slog.Int64("chat_id", a.cfg.Relay.ManagerChatID),
		slog.Int("operators", a.operators.Len()),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, rt coretelegram.Runtime) error {
	a.reminders.Stop()
	return nil
}

// handleManager answers the /manager elevation command. Membership is
// fixed at startup; the command only confirms or denies it.
func (a *App) handleManager(c tele.Context) error {
	from := c.Sender()
	if from != nil && a.operators.IsOperator(from.ID) {
		return c.Send(managerGrantedText)
	}
	return c.Send(managerDeniedText)
}

// escalation is the hand-off side effect bundle: mark the customer
// active, deliver the card, link the card message for operator replies.
type escalation struct {
	cards  *notify.Service
	links  *relay.Links
	active *relay.ActiveSession
}

func (e *escalation) Escalate(userID int64, username, firstName string) error {
	e.active.Set(userID)
	if e.cards == nil {
		return fmt.Errorf("bot: card service not wired")
	}
	msg, err := e.cards.SendCard(notify.Customer{ID: userID, Username: username, FirstName: firstName})
	if err != nil {
		return err
	}
	e.links.Add(msg.ID, userID)
	return nil
}
