package notification

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/meditermin/booking-api/internal/config"
	"github.com/meditermin/booking-api/internal/model"
)

// EmailSender sends booking confirmation mail through the practice's
// SMTP relay.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

func NewEmailSender(cfg config.SMTPConfig, logger zerolog.Logger) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// SendBookingConfirmation mails the appointment summary to the patient.
func (s *EmailSender) SendBookingConfirmation(event model.BookingConfirmedEvent) error {
	if event.UserEmail == "" {
		return fmt.Errorf("event carries no recipient address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", event.UserEmail)
	m.SetHeader("Subject", "Your appointment is confirmed")
	m.SetBody("text/plain", fmt.Sprintf(
		"Dear %s,\n\nyour appointment with %s on %s has been confirmed.\n\nYour practice team",
		event.UserName, event.DoctorName, event.Date,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send confirmation mail: %w", err)
	}

	s.logger.Info().Str("to", event.UserEmail).Msg("confirmation mail sent")
	return nil
}
