package services

import (
	"fmt"
	"log"
	"net/smtp"

	"markethub-backend/config"
)

// EmailSender is the delivery interface used by handlers and the task
// queue; tests substitute an in-memory outbox.
type EmailSender interface {
	Send(toEmail, subject, body string) error
	SendRegistrationEmail(toEmail, fullName, password string) error
	SendPasswordResetEmail(toEmail, fullName, newPassword string) error
}

// EmailService handles email sending functionality over SMTP
type EmailService struct {
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	fromEmail    string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	s := &EmailService{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUsername: cfg.SMTPUsername,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.EmailFrom,
	}

	if !s.configured() {
		log.Println("Warning: SMTP not fully configured, emails will be logged instead of sent")
	}

	return s
}

func (s *EmailService) configured() bool {
	return s.smtpHost != "" && s.smtpPort != 0 && s.smtpUsername != "" && s.smtpPassword != ""
}

// Send sends an email with the given subject and HTML body. When SMTP is
// not configured (development mode) the mail is logged and dropped.
func (s *EmailService) Send(toEmail, subject, body string) error {
	if !s.configured() {
		log.Printf("DEVELOPMENT MODE: would send email to %s: %s", toEmail, subject)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", s.fromEmail)
	message += fmt.Sprintf("To: %s\r\n", toEmail)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)
	addr := fmt.Sprintf("%s:%d", s.smtpHost, s.smtpPort)

	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{toEmail}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Email sent to %s: %s", toEmail, subject)
	return nil
}

// SendRegistrationEmail sends the welcome email with the account password
func (s *EmailService) SendRegistrationEmail(toEmail, fullName, password string) error {
	subject := "MarketHub - Account Created"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your MarketHub account has been created.</p>
		<p>Login: <strong>%s</strong><br>Password: <strong>%s</strong></p>
		<p>Best regards,<br>The MarketHub Team</p>
	`, fullName, toEmail, password)

	return s.Send(toEmail, subject, body)
}

// SendPasswordResetEmail sends the new password after a reset request
func (s *EmailService) SendPasswordResetEmail(toEmail, fullName, newPassword string) error {
	subject := "MarketHub - Password Reset"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your password has been reset. Your new password is:</p>
		<p><strong>%s</strong></p>
		<p>Please change it after logging in.</p>
		<p>Best regards,<br>The MarketHub Team</p>
	`, fullName, newPassword)

	return s.Send(toEmail, subject, body)
}
