package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

// Telegram caps a message at 4096 characters.
const maxMessageLen = 4096

var _ adapter.AdminAlerter = (*BotAlerter)(nil)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotAlerter posts operational digests to one admin chat.
type BotAlerter struct {
	bot    sender
	chatID int64
	log    *zerolog.Logger
}

func NewBotAlerter(cfg config.TelegramConfig, logger *zerolog.Logger) (*BotAlerter, error) {
	return newBotAlerter(cfg, tgbotapi.APIEndpoint, logger)
}

func newBotAlerter(cfg config.TelegramConfig, endpoint string, logger *zerolog.Logger) (*BotAlerter, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	l := logger.With().Str("component", "telegram").Logger()
	return &BotAlerter{bot: bot, chatID: cfg.ChatID, log: &l}, nil
}

func (a *BotAlerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r := []rune(text); len(r) > maxMessageLen {
		text = string(r[:maxMessageLen-1]) + "…"
	}
	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := a.bot.Send(msg); err != nil {
		a.log.Warn().Err(err).Msg("admin alert not delivered")
		return &domain.TransportError{Channel: "telegram", Err: err}
	}
	return nil
}

var _ adapter.AdminAlerter = (*NoopAlerter)(nil)

// NoopAlerter logs alerts when no Telegram chat is configured.
type NoopAlerter struct {
	log *zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	l := logger.With().Str("component", "telegram").Logger()
	return &NoopAlerter{log: &l}
}

func (a *NoopAlerter) Alert(_ context.Context, text string) error {
	a.log.Debug().Str("text", text).Msg("[noop-telegram] admin alert")
	return nil
}
