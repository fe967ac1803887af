package notify

import (
	"os"

	"github.com/wneessen/go-mail"
)

// SMTPMailer envoie les e-mails transactionnels via le relais SMTP configuré.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTPMailer() *SMTPMailer {
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@ngozi.co.ke"
	}
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	return &SMTPMailer{
		Host:     host,
		Port:     587,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     from,
	}
}

func (m *SMTPMailer) Send(to, subject, html string) error {
	msg := mail.NewMsg()

	if err := msg.From(m.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	return client.DialAndSend(msg)
}
