package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/magabrotheeeer/users-api/internal/config"
	"github.com/magabrotheeeer/users-api/internal/lib/sl"
)

// ErrSTARTTLSUnsupported — сервер не поддерживает STARTTLS, а TLS обязателен.
var ErrSTARTTLSUnsupported = errors.New("smtp server does not support STARTTLS")

// Transport реализует SMTP транспорт для отправки писем.
type Transport struct {
	cfg    config.SMTP
	log    *slog.Logger
	dialer net.Dialer
}

// smtpClientWrapper обертка для *smtp.Client, реализующая интерфейс Client.
type smtpClientWrapper struct {
	client *smtp.Client
}

func (w *smtpClientWrapper) Mail(from string) error {
	return w.client.Mail(from)
}

func (w *smtpClientWrapper) Rcpt(to string) error {
	return w.client.Rcpt(to)
}

func (w *smtpClientWrapper) Data() (io.WriteCloser, error) {
	return w.client.Data()
}

func (w *smtpClientWrapper) Quit() error {
	return w.client.Quit()
}

func (w *smtpClientWrapper) Close() error {
	return w.client.Close()
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect устанавливает соединение с SMTP сервером. STARTTLS включается,
// если сервер его поддерживает; аутентификация выполняется при заданном пользователе.
func (t *Transport) Connect(ctx context.Context) (Client, error) {
	const op = "smtp.Connect"

	conn, err := t.dialer.DialContext(ctx, "tcp", t.cfg.Address())
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to dial SMTP server: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: failed to create SMTP client: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: t.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			t.log.Error("failed to start TLS", sl.Err(err))
			t.closeClient(client)
			return nil, fmt.Errorf("%s: failed to start TLS: %w", op, err)
		}
	} else if t.cfg.RequireTLS {
		t.log.Error("SMTP server does not support STARTTLS")
		t.closeClient(client)
		return nil, fmt.Errorf("%s: %w", op, ErrSTARTTLSUnsupported)
	}

	if t.cfg.User != "" {
		auth := smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)
		if err = client.Auth(auth); err != nil {
			t.log.Error("smtp auth failed", sl.Err(err))
			t.closeClient(client)
			return nil, fmt.Errorf("%s: smtp auth failed: %w", op, err)
		}
	}

	return &smtpClientWrapper{client: client}, nil
}

func (t *Transport) closeClient(client *smtp.Client) {
	if closeErr := client.Close(); closeErr != nil {
		t.log.Error("failed to close client", sl.Err(closeErr))
	}
}

// From возвращает адрес отправителя.
func (t *Transport) From() string {
	return t.cfg.From
}
