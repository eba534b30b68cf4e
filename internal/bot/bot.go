package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/flow"
	"github.com/rabota-krsk/rabota-bot/internal/ratelimit"
	"github.com/rabota-krsk/rabota-bot/internal/repository"
	"github.com/rabota-krsk/rabota-bot/pkg/config"
)

const defaultPollTimeout = 10 * time.Second

// Bot is the Telegram transport layer. It owns the telebot instance and
// the routing/middleware chain; all dialog logic lives in the flow package.
type Bot struct {
	tb     *telebot.Bot
	router *Router
	flow   *flow.Flow
	log    *slog.Logger
}

// Deps lists the collaborators the transport needs.
type Deps struct {
	Flow       *flow.Flow
	Users      repository.UserRepository
	Limiter    ratelimit.Limiter
	ErrHandler *apperrors.Handler
	Log        *slog.Logger
}

// NewTelebot connects to the Telegram API. The client is shared between
// the transport and the messaging adapters, so it is built separately.
func NewTelebot(cfg *config.Config) (*telebot.Bot, error) {
	pollTimeout := defaultPollTimeout
	if cfg.Bot.PollTimeoutSec > 0 {
		pollTimeout = time.Duration(cfg.Bot.PollTimeoutSec) * time.Second
	}

	return telebot.NewBot(telebot.Settings{
		Token:  cfg.Bot.Token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
	})
}

// New wires routing, middlewares and payment hooks on top of the telebot
// client.
func New(cfg *config.Config, tb *telebot.Bot, d Deps) *Bot {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	b := &Bot{
		tb:     tb,
		router: NewRouter(log),
		flow:   d.Flow,
		log:    log,
	}

	b.router.Use(RecoveryMiddleware(log, d.ErrHandler))
	b.router.Use(ErrorHandlingMiddleware(d.ErrHandler))
	b.router.Use(LoggingMiddleware(log))
	b.router.Use(AuthMiddleware(d.Users, cfg.Bot.AdminIDs, log))
	b.router.Use(RateLimitMiddleware(d.Limiter, cfg.RateLimit.PerMinute, log))
	b.router.Use(MetricsMiddleware)

	b.router.RegisterCommand("/start", b.handleStart)
	b.router.RegisterCommand("/cancel", b.handleCancel)
	b.router.SetTextHandler(b.handleText)
	b.router.SetCallbackHandler(b.handleCallback)

	tb.Handle(telebot.OnText, b.router.Route)
	tb.Handle(telebot.OnCallback, b.router.Route)
	tb.Handle(telebot.OnContact, func(c telebot.Context) error {
		return b.router.executeHandler(b.handleContact, c)
	})
	tb.Handle(telebot.OnCheckout, b.handleCheckout)
	tb.Handle(telebot.OnPayment, func(c telebot.Context) error {
		return b.router.executeHandler(b.handlePayment, c)
	})

	return b
}

// Start begins long polling. Blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("starting long polling", slog.String("bot", b.tb.Me.Username))
	b.tb.Start()
}

// Stop terminates long polling.
func (b *Bot) Stop() {
	b.tb.Stop()
	b.log.Info("long polling stopped")
}

func (b *Bot) handleStart(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	return b.flow.Start(context.Background(), &domain.User{
		TelegramID: sender.ID,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
		Username:   sender.Username,
	})
}

func (b *Bot) handleCancel(c telebot.Context) error {
	if c.Sender() == nil {
		return nil
	}

	return b.flow.Cancel(context.Background(), c.Sender().ID)
}

func (b *Bot) handleText(c telebot.Context) error {
	if c.Sender() == nil {
		return nil
	}

	return b.flow.HandleText(context.Background(), c.Sender().ID, c.Text())
}

func (b *Bot) handleCallback(c telebot.Context) error {
	callback := c.Callback()
	if callback == nil || c.Sender() == nil {
		return nil
	}

	// Telegram prepends "\f" to callback data set via telebot buttons.
	action := strings.TrimSpace(strings.TrimPrefix(callback.Data, "\f"))

	// Acknowledge first so the client stops the spinner even when the
	// action takes a while.
	if err := c.Respond(); err != nil {
		b.log.Warn("failed to ack callback", slog.Any("error", err))
	}

	return b.flow.HandleAction(context.Background(), c.Sender().ID, action)
}

func (b *Bot) handleContact(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Contact == nil || c.Sender() == nil {
		return nil
	}

	return b.flow.HandleContact(context.Background(), c.Sender().ID, msg.Contact.PhoneNumber)
}

// handleCheckout answers the pre-checkout query. Telegram gives ten
// seconds to respond, so the check is payload-shape only; the balance is
// credited on the payment confirmation.
func (b *Bot) handleCheckout(c telebot.Context) error {
	query := c.PreCheckoutQuery()
	if query == nil {
		return nil
	}

	if !flow.ValidPayload(query.Payload) {
		b.log.Warn("rejecting checkout with unknown payload",
			slog.Int64("user_id", query.Sender.ID), slog.String("payload", query.Payload))
		return c.Accept("Что-то пошло не так с платежом. Попробуйте еще раз.")
	}

	return c.Accept()
}

func (b *Bot) handlePayment(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Payment == nil || c.Sender() == nil {
		return nil
	}

	payment := msg.Payment

	if !flow.ValidPayload(payment.Payload) {
		b.log.Error("payment arrived with unknown payload",
			slog.Int64("user_id", c.Sender().ID), slog.String("payload", payment.Payload))
		return b.flow.FailTopUp(context.Background(), c.Sender().ID)
	}

	return b.flow.CompleteTopUp(
		context.Background(),
		c.Sender().ID,
		payment.Payload,
		payment.TelegramChargeID,
		domain.Kopecks(payment.Total),
	)
}
