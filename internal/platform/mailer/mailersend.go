package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSend struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	m := &MailerSend{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *MailerSend) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or SMTP_FROM)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return res.Header.Get("X-Message-Id"), nil
}

func (m *MailerSend) SendWelcome(toEmail, toName, accountURL string) error {
	_, err := m.Send(toEmail, toName,
		"Welcome to WildTrek Tours!",
		fmt.Sprintf("Hi %s, welcome aboard! Manage your account: %s", toName, accountURL),
		fmt.Sprintf(`<p>Hi %s,</p><p>Welcome aboard! <a href="%s">Manage your account</a>.</p>`, toName, accountURL),
	)
	return err
}

func (m *MailerSend) SendPasswordReset(toEmail, toName, resetURL string) error {
	_, err := m.Send(toEmail, toName,
		"Your password reset token (valid for 10 minutes)",
		fmt.Sprintf("Hi %s, submit a PATCH request with your new password to: %s\nIf you didn't request this, ignore this email.", toName, resetURL),
		fmt.Sprintf(`<p>Hi %s,</p><p>Forgot your password? <a href="%s">Reset it here</a>. The link expires in 10 minutes.</p><p>If you didn't request this, ignore this email.</p>`, toName, resetURL),
	)
	return err
}
