// Package mail builds and delivers the account verification email.
package mail

import (
	"fmt"
	"net/smtp"

	"github.com/matcornic/hermes/v2"
	"github.com/sirupsen/logrus"
)

// Mailer delivers a verification message for an account. Delivery
// failure never rolls back the issued token; the caller surfaces it as
// a retryable warning.
type Mailer interface {
	SendVerification(recipient, name, link string) error
}

// SMTPMailer sends multipart text/html mail through a plain SMTP relay.
type SMTPMailer struct {
	server  string
	sender  string
	product string
	logger  *logrus.Logger
}

// NewSMTPMailer returns a mailer that relays through server (host:port).
// When server is empty the message is logged instead of sent, which
// keeps local development working without a relay.
func NewSMTPMailer(server, sender, product string, logger *logrus.Logger) *SMTPMailer {
	return &SMTPMailer{
		server:  server,
		sender:  sender,
		product: product,
		logger:  logger,
	}
}

func (m *SMTPMailer) SendVerification(recipient, name, link string) error {
	plain, html, err := m.buildBody(name, link)
	if err != nil {
		return fmt.Errorf("build verification email: %w", err)
	}

	if m.server == "" {
		m.logger.WithFields(logrus.Fields{
			"to":   recipient,
			"link": link,
		}).Info("mail server not configured, verification link logged instead")
		return nil
	}

	if err := m.deliver(recipient, "Verify your email address", plain, html); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildBody(name, link string) (plain, html string, err error) {
	h := hermes.Hermes{
		Product: hermes.Product{
			Name: m.product,
			Link: " ",
		},
	}
	email := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				"You are receiving this email because this address was used to register a " + m.product + " account.",
			},
			Actions: []hermes.Action{
				{
					Instructions: "Click to verify your email address:",
					Button: hermes.Button{
						Text: "Verify your email",
						Link: link,
					},
				},
			},
			Outros: []string{
				"If you did not register this account, no further action is required on your part.",
			},
		},
	}

	plain, err = h.GeneratePlainText(email)
	if err != nil {
		return "", "", err
	}
	html, err = h.GenerateHTML(email)
	if err != nil {
		return "", "", err
	}
	return plain, html, nil
}

func (m *SMTPMailer) deliver(recipient, subject, plain, html string) error {
	c, err := smtp.Dial(m.server)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(m.sender); err != nil {
		return err
	}
	if err := c.Rcpt(recipient); err != nil {
		return err
	}

	wc, err := c.Data()
	if err != nil {
		return err
	}
	defer wc.Close()

	const boundary = "MAZE-ALTERNATIVE"
	_, err = fmt.Fprintf(wc, "From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: multipart/alternative; boundary=%s\r\n"+
		"\r\n"+
		"--%s\r\nContent-Type: text/plain\r\n\r\n%s\r\n"+
		"--%s\r\nContent-Type: text/html\r\n\r\n%s\r\n"+
		"--%s--\r\n",
		m.product, m.sender, recipient, subject, boundary, boundary, plain, boundary, html, boundary)
	return err
}
