package email

import (
	"fmt"

	"acervo_backend/internal/config"

	"gopkg.in/gomail.v2"
)

// Mailer sends transactional mail. Enrollment uses it to deliver temporary
// credentials to auto-created users; delivery failure never fails the
// enrollment itself.
type Mailer interface {
	SendWelcome(to, name, tempPassword string) error
}

type SMTPMailer struct {
	cfg *config.Config
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendWelcome(to, name, tempPassword string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.Email.FromEmail, m.cfg.Email.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Sua conta foi criada")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Olá, %s!</p>"+
			"<p>Sua conta foi criada automaticamente após a sua compra.</p>"+
			"<p>Senha temporária: <strong>%s</strong></p>"+
			"<p>Recomendamos alterá-la no primeiro acesso.</p>",
		name, tempPassword,
	))

	d := gomail.NewDialer(
		m.cfg.Email.SMTPHost,
		m.cfg.Email.SMTPPort,
		m.cfg.Email.SMTPUsername,
		m.cfg.Email.SMTPPassword,
	)

	return d.DialAndSend(msg)
}
