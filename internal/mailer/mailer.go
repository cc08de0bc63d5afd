package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/config"
)

// ErrNotConfigured is returned when no SMTP host is set.
var ErrNotConfigured = errors.New("email delivery is not configured")

// OrderConfirmation is the data rendered into the confirmation email.
type OrderConfirmation struct {
	To          string
	Name        string
	OrderNumber string
	Items       []ConfirmationItem
	Total       decimal.Decimal
}

type ConfirmationItem struct {
	Name     string
	Quantity int
	Total    decimal.Decimal
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML email through an SMTP relay.
type SMTPMailer struct {
	cfg       config.SMTPConfig
	storeName string
	log       logrus.FieldLogger
	send      sendFunc
}

func NewSMTPMailer(cfg config.SMTPConfig, storeName string, log logrus.FieldLogger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, storeName: storeName, log: log, send: smtp.SendMail}
}

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(`<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order, {{.Name}}!</h2>
	<p>Your order <strong>#{{.OrderNumber}}</strong> has been placed.</p>
	<table cellpadding="4">
		<tr><th align="left">Item</th><th>Qty</th><th align="right">Total</th></tr>
		{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.Total.StringFixed 2}}</td></tr>
		{{end}}
	</table>
	<p>Grand total: <strong>{{.Total.StringFixed 2}}</strong></p>
	<p>Regards,<br>{{.StoreName}}</p>
</body>
</html>`))

// RenderOrderConfirmation returns the subject and HTML body for the confirmation email.
func (m *SMTPMailer) RenderOrderConfirmation(c OrderConfirmation) (string, string, error) {
	var buf bytes.Buffer
	data := struct {
		OrderConfirmation
		StoreName string
	}{c, m.storeName}
	if err := orderConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render email template: %w", err)
	}
	return fmt.Sprintf("Order Confirmation #%s", c.OrderNumber), buf.String(), nil
}

// SendOrderConfirmation renders and sends the email. It gives up when ctx is done.
func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, c OrderConfirmation) error {
	subject, body, err := m.RenderOrderConfirmation(c)
	if err != nil {
		return err
	}

	if m.cfg.Host == "" {
		m.log.WithFields(logrus.Fields{"to": c.To, "subject": subject}).Info("email not sent, SMTP host is empty")
		return ErrNotConfigured
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.cfg.From, c.To, subject, body))
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.cfg.From, []string{c.To}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", c.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending email to %s: %w", c.To, ctx.Err())
	}
}
