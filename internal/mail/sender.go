package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"backdrop/internal/infra"
)

// SendResult reports how a delivery attempt ended. Delivery is always
// best-effort; a failed send must never block the calling flow.
type SendResult struct {
	Sent bool
	Mode string // "sent", "simulation", or "failed"
	Err  error
}

// Sender delivers verification mail over SMTP. When SMTP is not
// configured it logs the message instead and reports simulation mode.
type Sender struct {
	host       string
	port       int
	user       string
	password   string
	from       string
	appBaseURL string
	logger     infra.Logger

	// dial is swapped out in tests to avoid a real SMTP round trip.
	dial func(m *gomail.Message) error
}

// NewSender constructs a sender from configuration.
func NewSender(cfg *infra.Config, logger infra.Logger) *Sender {
	s := &Sender{
		host:       cfg.SMTPHost,
		port:       cfg.SMTPPort,
		user:       cfg.SMTPUser,
		password:   cfg.SMTPPassword,
		from:       cfg.MailFrom,
		appBaseURL: cfg.AppBaseURL,
		logger:     logger,
	}
	s.dial = func(m *gomail.Message) error {
		d := gomail.NewDialer(s.host, s.port, s.user, s.password)
		return d.DialAndSend(m)
	}
	return s
}

// Configured reports whether real delivery is possible.
func (s *Sender) Configured() bool {
	return s.host != ""
}

// VerificationURL builds the link a user follows to verify their address.
func (s *Sender) VerificationURL(token string) string {
	return fmt.Sprintf("%s/verify?token=%s", s.appBaseURL, token)
}

// SendVerification delivers the verification mail for the token.
func (s *Sender) SendVerification(email, token string) SendResult {
	url := s.VerificationURL(token)

	if !s.Configured() {
		s.logger.Info().Str("to", email).Str("verification_url", url).
			Msg("smtp not configured, simulating verification mail")
		return SendResult{Sent: true, Mode: "simulation"}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Verify your email address")
	m.SetBody("text/plain", fmt.Sprintf(
		"Thank you for signing up!\n\nPlease visit the following link to verify your email address:\n\n%s\n\nIf you didn't create an account, you can safely ignore this email.\nThis link expires in 24 hours.\n", url))
	m.AddAlternative("text/html", fmt.Sprintf(
		`<p>Thank you for signing up!</p><p>Please click the link below to verify your email address:</p><p><a href="%s">Verify email address</a></p><p>If you didn't create an account, you can safely ignore this email. This link expires in 24 hours.</p>`, url))

	if err := s.dial(m); err != nil {
		s.logger.Warn().Err(err).Str("to", email).Msg("verification mail delivery failed")
		return SendResult{Sent: false, Mode: "failed", Err: err}
	}
	return SendResult{Sent: true, Mode: "sent"}
}
