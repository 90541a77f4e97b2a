// Package sender отправляет пользователям письма по событиям из очереди уведомлений.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/users-api/internal/lib/sl"
	"github.com/magabrotheeeer/users-api/internal/lib/smtp"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// SenderService формирует и отправляет письма.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
	resetURL  string
	now       func() time.Time
}

// NewSenderService создает новый экземпляр SenderService. resetURL — адрес,
// к которому дописывается секрет сброса пароля.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface, resetURL string) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
		resetURL:  resetURL,
		now:       time.Now,
	}
}

// SendPasswordReset обрабатывает сообщение models.PasswordResetMessage.
// Нечитаемые сообщения отбрасываются, чтобы не возвращать их в очередь бесконечно.
func (s *SenderService) SendPasswordReset(ctx context.Context, body []byte) error {
	const op = "sender.SendPasswordReset"
	log := s.log.With(sl.Op(op))

	var message models.PasswordResetMessage
	if err := json.Unmarshal(body, &message); err != nil {
		log.Error("failed to unmarshal message body, dropping", sl.Err(err))
		return nil
	}
	if message.Email == "" || message.Token == "" {
		log.Error("password reset message without email or token, dropping")
		return nil
	}
	if !message.ExpiresAt.IsZero() && !s.now().Before(message.ExpiresAt) {
		log.Info("password reset token already expired, skipping", slog.String("to", message.Email))
		return nil
	}

	subject := "Your password reset token (valid for 10 min)"
	if !message.ExpiresAt.IsZero() {
		minutes := int(message.ExpiresAt.Sub(s.now()).Round(time.Minute).Minutes())
		subject = fmt.Sprintf("Your password reset token (valid for %d min)", max(minutes, 1))
	}
	bodyText := fmt.Sprintf("Hello, %s!\n\n"+
		"Forgot your password? Submit a PATCH request with your new password to:\n%s%s\n\n"+
		"If you didn't forget your password, please ignore this email.",
		message.FirstName, s.resetURL, message.Token)

	if err := s.sendEmail(ctx, []string{message.Email}, subject, bodyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SenderService) sendEmail(ctx context.Context, to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect(ctx)
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
