// Package notify posts short chat messages for selected domain events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/resilience"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot connects to the Bot API with token. Outbound calls are traced and
// bounded by timeout.
func NewBot(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithSpanNameFormatter(botSpanName)),
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram bot: %w", err)
	}
	return bot, nil
}

func botSpanName(_ string, r *http.Request) string {
	// The request path carries the bot token.
	return "telegram " + r.Method
}

// DefaultTopics are notified when Telegram.Topics is nil.
func DefaultTopics() []string {
	return []string{events.TopicInvoiceCreated, events.TopicQuotationCreated, events.TopicShopCreated}
}

// Telegram is an events.Sink posting to one chat.
type Telegram struct {
	Bot     Sender
	ChatID  int64
	Topics  []string
	Breaker *resilience.Breaker
}

// Name implements events.Sink.
func (t *Telegram) Name() string { return "telegram" }

// Deliver implements events.Sink. Topics outside the configured set are
// accepted without sending anything.
func (t *Telegram) Deliver(ctx context.Context, env events.Envelope) error {
	if t.Bot == nil || !t.wants(env.Topic) {
		return nil
	}
	payload := map[string]any{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("telegram notify: decode payload: %w", err)
		}
	}
	msg := tgbotapi.NewMessage(t.ChatID, messageFor(env, payload))
	send := func(context.Context) error {
		_, err := t.Bot.Send(msg)
		return err
	}
	if t.Breaker != nil {
		return t.Breaker.Execute(ctx, send)
	}
	return send(ctx)
}

func (t *Telegram) wants(topic string) bool {
	topics := t.Topics
	if topics == nil {
		topics = DefaultTopics()
	}
	for _, candidate := range topics {
		if candidate == topic {
			return true
		}
	}
	return false
}

func titleFor(topic string) string {
	switch topic {
	case events.TopicInvoiceCreated:
		return "New invoice"
	case events.TopicQuotationCreated:
		return "New quotation"
	case events.TopicQuotationDeleted:
		return "Quotation deleted"
	case events.TopicShopCreated:
		return "New shop"
	case events.TopicAccountCreated:
		return "New account"
	default:
		return "Event " + topic
	}
}

func messageFor(env events.Envelope, payload map[string]any) string {
	var b strings.Builder
	b.WriteString(titleFor(env.Topic))
	if number := firstString(payload, "invoiceNumber", "quotationNumber", "shopName", "customerName"); number != "" {
		b.WriteString(" " + number)
	}
	if env.ShopID > 0 {
		b.WriteString("\nShop: " + strconv.FormatInt(env.ShopID, 10))
	}
	if total := firstString(payload, "amount", "grandTotal"); total != "" {
		b.WriteString("\nTotal: " + total)
	}
	if env.Actor != "" {
		b.WriteString("\nBy: " + env.Actor)
	}
	b.WriteString("\nAt: " + env.OccurredAt.Format(time.RFC3339))
	return b.String()
}

// firstString returns the first non-empty value among keys. Decimals arrive
// as JSON strings and counts as numbers.
func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
