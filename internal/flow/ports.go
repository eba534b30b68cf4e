// Package flow implements the composition dialog: draft collection,
// review, immediate and scheduled publication, the shop and the admin
// panel. It talks to Telegram only through the ports below, so the whole
// dialog runs in tests without a network.
package flow

import (
	"context"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// Button is one inline keyboard button. Action is the callback payload
// routed back into HandleAction.
type Button struct {
	Label  string
	Action string
}

// Menu is an inline keyboard layout, one slice per row.
type Menu [][]Button

// Messenger delivers messages to a user's private chat.
type Messenger interface {
	Send(ctx context.Context, userID int64, text string) error
	SendMenu(ctx context.Context, userID int64, text string, menu Menu) error
}

// FeedPublisher posts the final text to the public feed.
type FeedPublisher interface {
	Publish(ctx context.Context, pubType domain.PublicationType, text string) (messageID int, err error)
}

// PaymentGateway starts a top-up payment for the given amount.
type PaymentGateway interface {
	SendInvoice(ctx context.Context, userID int64, amount domain.Kopecks, payload string) error
}
