package mailer

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/go-mail/mail/v2"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

type capturedMail struct {
	mu       sync.Mutex
	messages []*mail.Message
	failures int
}

func (c *capturedMail) dial(d *mail.Dialer, msgs ...*mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("smtp unavailable")
	}
	c.messages = append(c.messages, msgs...)
	return nil
}

func newTestMailer(t *testing.T, c *capturedMail) *Mailer {
	t.Helper()
	orig := dialAndSend
	t.Cleanup(func() { dialAndSend = orig })
	dialAndSend = c.dial

	cfg := &config.Config{
		SMTPHost:   "localhost",
		SMTPPort:   1025,
		SMTPSender: "TaskHub <no-reply@taskhub.local>",
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewMailer(cfg, logger)
}

func messageBody(t *testing.T, msg *mail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.String()
}

func TestEmailVerificationRequested(t *testing.T) {
	c := &capturedMail{}
	m := newTestMailer(t, c)

	user := &models.User{Name: "alice", Email: "a@x.com"}
	m.EmailVerificationRequested(user, "http://localhost:8080/email/verify/u1?token=abc")
	m.Wait()

	if len(c.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(c.messages))
	}
	msg := c.messages[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "a@x.com" {
		t.Fatalf("To header: %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Verify your email address" {
		t.Fatalf("Subject header: %v", got)
	}
	body := messageBody(t, msg)
	if !strings.Contains(body, "token=3Dabc") && !strings.Contains(body, "token=abc") {
		t.Fatalf("verification link missing from body")
	}
}

func TestTaskAssigned(t *testing.T) {
	c := &capturedMail{}
	m := newTestMailer(t, c)

	task := &models.Task{
		Title:   "write report",
		Creator: &models.User{Name: "bob"},
	}
	assignee := &models.User{Name: "alice", Email: "a@x.com"}
	m.TaskAssigned(task, assignee)
	m.Wait()

	if len(c.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(c.messages))
	}
	msg := c.messages[0]
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "A task was assigned to you: write report" {
		t.Fatalf("Subject header: %v", got)
	}
	body := messageBody(t, msg)
	if !strings.Contains(body, "bob") {
		t.Fatalf("creator name missing from body")
	}
}

func TestTaskCompleted(t *testing.T) {
	c := &capturedMail{}
	m := newTestMailer(t, c)

	task := &models.Task{
		Title:    "write report",
		Assignee: &models.User{Name: "alice"},
	}
	creator := &models.User{Name: "bob", Email: "b@x.com"}
	m.TaskCompleted(task, creator)
	m.Wait()

	if len(c.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(c.messages))
	}
	msg := c.messages[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "b@x.com" {
		t.Fatalf("To header: %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Task completed: write report" {
		t.Fatalf("Subject header: %v", got)
	}
}

func TestSend_RetriesTransientFailures(t *testing.T) {
	c := &capturedMail{failures: 2}
	m := newTestMailer(t, c)

	m.EmailVerificationRequested(&models.User{Name: "alice", Email: "a@x.com"}, "http://link")
	m.Wait()

	if len(c.messages) != 1 {
		t.Fatalf("expected delivery after retries, got %d messages", len(c.messages))
	}
}

func TestSend_GivesUpAfterAttempts(t *testing.T) {
	c := &capturedMail{failures: 5}
	m := newTestMailer(t, c)

	m.EmailVerificationRequested(&models.User{Name: "alice", Email: "a@x.com"}, "http://link")
	m.Wait()

	if len(c.messages) != 0 {
		t.Fatalf("no delivery expected, got %d messages", len(c.messages))
	}
}
