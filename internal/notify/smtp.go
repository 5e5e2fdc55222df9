package notify

import (
	"context"
	"time"

	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/retryx"
	"github.com/sethvargo/go-retry"
	"github.com/wneessen/go-mail"
)

const (
	maxAttempts      = 3
	defaultRetryBase = 2 * time.Second
)

// Config holds SMTP settings for the email sink.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address.
	From string
	// To is the operator address notifications go to. Falls back to From
	// when unset.
	To string
	// RetryBase is the base backoff delay between delivery attempts.
	RetryBase time.Duration
}

// SMTPSink delivers notifications to the operator mailbox over SMTP.
type SMTPSink struct {
	cfg Config
	log logging.Logger

	// send is a seam for tests; the default dials the configured server.
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPSink(cfg Config, log logging.Logger) *SMTPSink {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.To == "" {
		cfg.To = cfg.From
	}
	s := &SMTPSink{cfg: cfg, log: log.With("component", "smtp-sink")}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSink) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Notify sends subject/body to the operator address, retrying transient
// failures with the same bounded linear backoff the remote store uses.
// The returned error is informational; callers do not propagate it.
func (s *SMTPSink) Notify(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return err
	}
	if err := msg.To(s.cfg.To); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	attempt := 0
	b := retry.WithMaxRetries(maxAttempts-1, retryx.Linear(s.cfg.RetryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := s.send(ctx, msg); err != nil {
			s.log.Warn(ctx, "notification delivery failed",
				"subject", subject, "attempt", attempt, "max", maxAttempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "notification dropped after retries", "subject", subject, "error", err)
		return err
	}
	s.log.Info(ctx, "notification delivered", "subject", subject)
	return nil
}
