package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	telebot "gopkg.in/telebot.v3"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	"github.com/rabota-krsk/rabota-bot/internal/flow"
)

// markup converts a flow menu into telebot inline markup.
func markup(menu flow.Menu) *telebot.ReplyMarkup {
	if len(menu) == 0 {
		return nil
	}

	rm := &telebot.ReplyMarkup{}
	rows := make([][]telebot.InlineButton, len(menu))
	for i, row := range menu {
		rows[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			rows[i][j] = telebot.InlineButton{Text: btn.Label, Data: btn.Action}
		}
	}
	rm.InlineKeyboard = rows

	return rm
}

// Messenger delivers flow messages through telebot. Implements
// flow.Messenger.
type Messenger struct {
	tb  *telebot.Bot
	log *slog.Logger
}

// NewMessenger wraps the telebot instance as a flow messenger.
func NewMessenger(tb *telebot.Bot, log *slog.Logger) *Messenger {
	if log == nil {
		log = slog.Default()
	}

	return &Messenger{tb: tb, log: log}
}

// Send delivers a plain text message to the user's private chat.
func (m *Messenger) Send(ctx context.Context, userID int64, text string) error {
	_, err := m.tb.Send(&telebot.User{ID: userID}, text)
	if err != nil {
		return fmt.Errorf("send message to %d: %w", userID, err)
	}
	return nil
}

// SendMenu delivers a message with an inline keyboard.
func (m *Messenger) SendMenu(ctx context.Context, userID int64, text string, menu flow.Menu) error {
	_, err := m.tb.Send(&telebot.User{ID: userID}, text, markup(menu))
	if err != nil {
		return fmt.Errorf("send menu to %d: %w", userID, err)
	}
	return nil
}

// FeedPublisher posts publications into the public feed chat with the
// type-specific cover image. Implements flow.FeedPublisher.
type FeedPublisher struct {
	tb         *telebot.Bot
	feedChatID int64
	log        *slog.Logger
}

// NewFeedPublisher creates a publisher for the configured feed chat.
func NewFeedPublisher(tb *telebot.Bot, feedChatID int64, log *slog.Logger) *FeedPublisher {
	if log == nil {
		log = slog.Default()
	}

	return &FeedPublisher{tb: tb, feedChatID: feedChatID, log: log}
}

// Publish sends the post to the feed and returns the feed message ID. When
// the cover image is missing the post goes out as plain text.
func (p *FeedPublisher) Publish(ctx context.Context, pubType domain.PublicationType, text string) (int, error) {
	chat := &telebot.Chat{ID: p.feedChatID}

	imagePath := domain.ImagePath(pubType)
	if _, err := os.Stat(imagePath); err == nil {
		photo := &telebot.Photo{File: telebot.FromDisk(imagePath), Caption: text}

		msg, err := p.tb.Send(chat, photo, telebot.ModeHTML)
		if err != nil {
			return 0, fmt.Errorf("publish photo to feed: %w", err)
		}
		return msg.ID, nil
	}

	p.log.Warn("feed image missing, publishing text only", "image", imagePath)

	msg, err := p.tb.Send(chat, text, telebot.ModeHTML)
	if err != nil {
		return 0, fmt.Errorf("publish text to feed: %w", err)
	}
	return msg.ID, nil
}

// PaymentGateway issues provider invoices for balance top-ups. Implements
// flow.PaymentGateway.
type PaymentGateway struct {
	tb            *telebot.Bot
	providerToken string
	currency      string
	log           *slog.Logger
}

// NewPaymentGateway creates a gateway bound to the payments provider.
func NewPaymentGateway(tb *telebot.Bot, providerToken, currency string, log *slog.Logger) *PaymentGateway {
	if log == nil {
		log = slog.Default()
	}
	if currency == "" {
		currency = "RUB"
	}

	return &PaymentGateway{
		tb:            tb,
		providerToken: providerToken,
		currency:      currency,
		log:           log,
	}
}

// SendInvoice sends a top-up invoice. The amount reaches the provider in
// minor units.
func (g *PaymentGateway) SendInvoice(ctx context.Context, userID int64, amount domain.Kopecks, payload string) error {
	invoice := telebot.Invoice{
		Title:       "Пополнение баланса",
		Description: fmt.Sprintf("Пополнение баланса на %d рублей", amount.Rubles()),
		Payload:     payload,
		Currency:    g.currency,
		Token:       g.providerToken,
		Prices: []telebot.Price{
			{Label: "Пополнение баланса", Amount: int(amount)},
		},
	}

	if _, err := g.tb.Send(&telebot.User{ID: userID}, &invoice); err != nil {
		return fmt.Errorf("send invoice to %d: %w", userID, err)
	}

	return nil
}
