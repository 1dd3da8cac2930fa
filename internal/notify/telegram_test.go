package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/notify"
	"github.com/noah-isme/toko-admin/internal/resilience"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func envelope(topic, payload string) events.Envelope {
	return events.Envelope{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: 5,
		ShopID:      2,
		Actor:       "console",
		OccurredAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Payload:     []byte(payload),
	}
}

func TestTelegramSendsInvoiceSummary(t *testing.T) {
	bot := &fakeBot{}
	sink := &notify.Telegram{Bot: bot, ChatID: 99}
	err := sink.Deliver(context.Background(), envelope(events.TopicInvoiceCreated, `{"invoiceNumber":"INV-7","amount":"190.00"}`))
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)
	require.Equal(t, int64(99), bot.sent[0].ChatID)
	text := bot.sent[0].Text
	require.Contains(t, text, "New invoice INV-7")
	require.Contains(t, text, "Shop: 2")
	require.Contains(t, text, "Total: 190.00")
	require.Contains(t, text, "By: console")
	require.Contains(t, text, "2024-01-02T03:04:05Z")
}

func TestTelegramSkipsUnselectedTopics(t *testing.T) {
	bot := &fakeBot{}
	sink := &notify.Telegram{Bot: bot, Topics: []string{events.TopicQuotationCreated}}
	require.NoError(t, sink.Deliver(context.Background(), envelope(events.TopicInvoiceCreated, `{}`)))
	require.Empty(t, bot.sent)
}

func TestTelegramRejectsBadPayload(t *testing.T) {
	sink := &notify.Telegram{Bot: &fakeBot{}}
	require.Error(t, sink.Deliver(context.Background(), envelope(events.TopicShopCreated, `[1,2]`)))
}

func TestTelegramOpensBreakerOnFailures(t *testing.T) {
	bot := &fakeBot{err: errors.New("429")}
	sink := &notify.Telegram{Bot: bot, Breaker: resilience.NewBreaker(1, 0.5, time.Minute)}
	env := envelope(events.TopicShopCreated, `{"shopName":"Kopi"}`)
	require.ErrorContains(t, sink.Deliver(context.Background(), env), "429")
	require.ErrorIs(t, sink.Deliver(context.Background(), env), resilience.ErrOpenCircuit)
	require.Equal(t, "telegram", sink.Name())
}
