package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gatehouse-io/gatehouse/internal/config"
)

// Sender delivers a message to an email address. Implementations block until
// the transport accepts the message; there is no retry.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New builds the Sender selected by the mail configuration.
func New(cfg config.MailConfig) (Sender, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "sendgrid":
		return NewSendGridSender(cfg.SendGridKey, cfg.From), nil
	case "log":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the log instead of delivering them. Used in
// development where no mail transport is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	log.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("mail (log only)")
	return nil
}
