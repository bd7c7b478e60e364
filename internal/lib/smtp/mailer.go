package smtp

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Mailer отправляет письма через TransportInterface.
type Mailer struct {
	transport TransportInterface
	from      string
}

// NewMailer создает Mailer с адресом отправителя from.
func NewMailer(transport TransportInterface, from string) *Mailer {
	return &Mailer{transport: transport, from: from}
}

// Send отправляет одно текстовое письмо в UTF-8.
func (m *Mailer) Send(ctx context.Context, email models.Email) (err error) {
	const op = "smtp.Send"
	if len(email.To) == 0 {
		return fmt.Errorf("%s: no recipients", op)
	}

	client, err := m.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = client.Close()
		}
	}()

	if err = client.Mail(envelopeAddress(m.from)); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	for _, addr := range email.To {
		if err = client.Rcpt(addr); err != nil {
			return fmt.Errorf("%s: rcpt %s: %w", op, addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write([]byte(m.message(email))); err != nil {
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close body: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}
	return nil
}

func (m *Mailer) message(email models.Email) string {
	return strings.Join([]string{
		"From: " + m.from,
		"To: " + strings.Join(email.To, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", email.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"Content-Transfer-Encoding: 8bit",
		"",
		email.Text,
	}, "\r\n")
}

// envelopeAddress достает адрес из вида "Name <addr@host>".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}
