package mail

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"

	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/logger"
	gomail "gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	paymentConfirmationTemplate = "payment_confirmation.html"
	bookingReceivedTemplate     = "booking_received.html"

	paymentConfirmationSubject = "Payment Confirmation - Booking Confirmed"
	bookingReceivedSubject     = "Booking Confirmation"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type PaymentConfirmationData struct {
	Name          string
	BookingID     string
	ListingTitle  string
	Amount        string
	Currency      string
	PaymentMethod string
}

type BookingReceivedData struct {
	Name         string
	BookingID    string
	ListingTitle string
	CheckIn      string
	CheckOut     string
	Guests       int
	TotalPrice   string
	Currency     string
}

// Mailer renders the embedded templates and sends them over SMTP.
type Mailer struct {
	from      string
	sender    Sender
	templates *template.Template
}

func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         cfg.Host,
	}
	return NewMailerWithSender(cfg.From, dialer)
}

func NewMailerWithSender(from string, sender Sender) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Mailer{from: from, sender: sender, templates: tmpl}, nil
}

func (m *Mailer) Render(name string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", name, err)
	}
	return body.String(), nil
}

func (m *Mailer) send(to, subject, templateName string, data interface{}) error {
	body, err := m.Render(templateName, data)
	if err != nil {
		logger.ErrorLogger.Error(err)
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		logger.ErrorLogger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoLogger.Infof("Sent %q email to %s", subject, to)
	return nil
}

func (m *Mailer) SendPaymentConfirmation(to string, data PaymentConfirmationData) error {
	return m.send(to, paymentConfirmationSubject, paymentConfirmationTemplate, data)
}

func (m *Mailer) SendBookingReceived(to string, data BookingReceivedData) error {
	return m.send(to, bookingReceivedSubject, bookingReceivedTemplate, data)
}
