package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/mrz1836/postmark"
	"github.com/rs/zerolog"

	"subscription-billing/internal/config"
	"subscription-billing/internal/infra/logging"
)

var (
	ErrInvalidConfig     = errors.New("invalid email configuration")
	ErrFailedToSendEmail = errors.New("failed to send email")
)

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	Tag      string
}

// NewSender picks the transport configured in email.provider.
func NewSender(cfg config.EmailConfig, logger *zerolog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "postmark":
		return NewPostmarkSender(cfg)
	case "log", "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

type PostmarkSender struct {
	client *postmark.Client
	from   string
	stream string
}

func NewPostmarkSender(cfg config.EmailConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: server token is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("%w: from must be a valid email address", ErrInvalidConfig)
	}
	from := cfg.From
	if cfg.FromName != "" {
		from = (&mail.Address{Name: cfg.FromName, Address: cfg.From}).String()
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, ""),
		from:   from,
		stream: cfg.Stream,
	}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, m Message) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:          s.from,
		To:            m.To,
		Subject:       m.Subject,
		Tag:           m.Tag,
		HTMLBody:      m.HTMLBody,
		TextBody:      m.TextBody,
		TrackOpens:    true,
		MessageStream: s.stream,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log *zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	l := logger.With().Str("component", "mail").Logger()
	return &LogSender{log: &l}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	logging.With(ctx, s.log).Info().
		Str("to", logging.Redact(m.To, false)).
		Str("subject", m.Subject).
		Str("tag", m.Tag).
		Int("html_bytes", len(m.HTMLBody)).
		Msg("email (log transport)")
	return nil
}
