// Package bot tells the organisers' Telegram chat about new registrations.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/grvc/ambassadors/internal/events"
)

// sender is the part of *tgbot.Bot the notifier uses.
type sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *tgbot.SendPhotoParams) (*models.Message, error)
}

type Client struct {
	api     sender
	chatID  int64
	baseURL string
}

// NewClient builds a notifier for token posting to chatID. When baseURL is
// set the message is sent as the registration's QR code with a caption.
func NewClient(token string, chatID int64, baseURL string) (*Client, error) {
	b, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newClient(b, chatID, baseURL), nil
}

func newClient(api sender, chatID int64, baseURL string) *Client {
	return &Client{api: api, chatID: chatID, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Notify(ctx context.Context, ev events.SubmittedEvent) error {
	text := FormatRegistration(ev)
	if c.baseURL != "" {
		_, err := c.api.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID:    c.chatID,
			Photo:     &models.InputFileString{Data: c.baseURL + "/qr/" + ev.Code + ".png"},
			Caption:   text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return fmt.Errorf("telegram sendPhoto: %w", err)
		}
		return nil
	}
	_, err := c.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// FormatRegistration renders ev as an HTML Telegram message.
func FormatRegistration(ev events.SubmittedEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>New registration</b> %s\n", html.EscapeString(ev.Code))
	if ev.EventName != "" {
		fmt.Fprintf(&sb, "%s\n", html.EscapeString(ev.EventName))
	}
	fmt.Fprintf(&sb, "\n%s %s\n", html.EscapeString(ev.Title), html.EscapeString(ev.Name))
	fmt.Fprintf(&sb, "Church: %s\n", html.EscapeString(ev.ChurchName))
	fmt.Fprintf(&sb, "Email: %s\n", html.EscapeString(ev.Email))
	fmt.Fprintf(&sb, "Phone: %s\n", html.EscapeString(ev.Phone))
	pay := ev.PaymentMethod
	if pay == "mpesa" && ev.MSISDN != "" {
		pay += " (" + ev.MSISDN + ")"
	}
	fmt.Fprintf(&sb, "Payment: %s", html.EscapeString(pay))
	if ev.Fee != "" {
		fmt.Fprintf(&sb, ", %s", html.EscapeString(ev.Fee))
	}
	return sb.String()
}
