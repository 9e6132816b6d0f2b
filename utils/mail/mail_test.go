package mail

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/gomail.v2"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m...)
	return nil
}

func TestRenderPaymentConfirmation(t *testing.T) {
	m, err := NewMailerWithSender("noreply@example.com", &captureSender{})
	require.NoError(t, err)

	body, err := m.Render(paymentConfirmationTemplate, PaymentConfirmationData{
		Name:          "Abebe",
		BookingID:     "b-123",
		ListingTitle:  "Lakeside <Villa>",
		Amount:        "200.00",
		Currency:      "ETB",
		PaymentMethod: "telebirr",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "200.00 ETB")
	assert.Contains(t, body, "b-123")
	assert.Contains(t, body, "Payment method: telebirr")
	assert.Contains(t, body, "Lakeside &lt;Villa&gt;")
}

func TestSendPaymentConfirmation(t *testing.T) {
	sender := &captureSender{}
	m, err := NewMailerWithSender("noreply@example.com", sender)
	require.NoError(t, err)

	err = m.SendPaymentConfirmation("guest@example.com", PaymentConfirmationData{BookingID: "b-1", Amount: "10.00", Currency: "ETB"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"guest@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{paymentConfirmationSubject}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "b-1")
}

func TestSendFailureIsReturned(t *testing.T) {
	m, err := NewMailerWithSender("noreply@example.com", &captureSender{err: errors.New("smtp down")})
	require.NoError(t, err)

	err = m.SendBookingReceived("guest@example.com", BookingReceivedData{BookingID: "b-2"})
	assert.Error(t, err)
}
