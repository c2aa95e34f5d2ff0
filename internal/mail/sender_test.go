package mail

import (
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"backdrop/internal/infra"
)

func newTestSender(cfg *infra.Config) *Sender {
	return NewSender(cfg, zerolog.New(io.Discard))
}

func TestVerificationURL(t *testing.T) {
	s := newTestSender(&infra.Config{AppBaseURL: "https://app.example.com"})
	got := s.VerificationURL("abc123")
	if got != "https://app.example.com/verify?token=abc123" {
		t.Fatalf("VerificationURL() = %q", got)
	}
}

func TestSendVerificationSimulatesWithoutSMTP(t *testing.T) {
	s := newTestSender(&infra.Config{AppBaseURL: "https://app.example.com"})
	if s.Configured() {
		t.Fatalf("sender without smtp host should not report configured")
	}

	res := s.SendVerification("u@example.com", "tok")
	if !res.Sent || res.Mode != "simulation" {
		t.Fatalf("SendVerification() = %+v, want simulated send", res)
	}
}

func TestSendVerificationDelivers(t *testing.T) {
	s := newTestSender(&infra.Config{
		AppBaseURL: "https://app.example.com",
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		MailFrom:   "noreply@example.com",
	})

	var sent *gomail.Message
	s.dial = func(m *gomail.Message) error {
		sent = m
		return nil
	}

	res := s.SendVerification("u@example.com", "tok")
	if !res.Sent || res.Mode != "sent" {
		t.Fatalf("SendVerification() = %+v, want delivered", res)
	}
	if sent == nil {
		t.Fatalf("dialer was never invoked")
	}
	if got := sent.GetHeader("To"); len(got) != 1 || got[0] != "u@example.com" {
		t.Fatalf("To = %v", got)
	}
	if got := sent.GetHeader("From"); len(got) != 1 || got[0] != "noreply@example.com" {
		t.Fatalf("From = %v", got)
	}
}

func TestSendVerificationReportsFailure(t *testing.T) {
	s := newTestSender(&infra.Config{
		AppBaseURL: "https://app.example.com",
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
	})
	s.dial = func(*gomail.Message) error {
		return errors.New("connection refused")
	}

	res := s.SendVerification("u@example.com", "tok")
	if res.Sent || res.Mode != "failed" || res.Err == nil {
		t.Fatalf("SendVerification() = %+v, want failed result", res)
	}
}
