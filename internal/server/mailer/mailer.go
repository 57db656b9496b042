// Package mailer delivers the outbound notification emails over SMTP. It
// implements services.Notifier: every send runs in its own goroutine and a
// failed delivery is logged, never propagated to the state change that
// triggered it.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"sync"

	"github.com/go-mail/mail/v2"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// dialAndSend is a seam for testing SMTP delivery.
var dialAndSend = func(d *mail.Dialer, msgs ...*mail.Message) error {
	return d.DialAndSend(msgs...)
}

const sendAttempts = 3

// Mailer sends templated emails through an SMTP dialer.
type Mailer struct {
	dialer *mail.Dialer
	sender string
	logger logging.Logger
	wg     sync.WaitGroup
}

// NewMailer constructs a Mailer from the server config.
func NewMailer(cfg *config.Config, logger logging.Logger) *Mailer {
	return &Mailer{
		dialer: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		sender: cfg.SMTPSender,
		logger: logger,
	}
}

// EmailVerificationRequested sends the signed verification link to the user.
func (m *Mailer) EmailVerificationRequested(user *models.User, link string) {
	m.background("verification.tmpl", user.Email, map[string]any{
		"Name": user.Name,
		"Link": link,
	})
}

// TaskAssigned informs the assignee about a task assigned to them.
func (m *Mailer) TaskAssigned(task *models.Task, assignee *models.User) {
	data := map[string]any{
		"Name":    assignee.Name,
		"Title":   task.Title,
		"DueDate": task.DueDate,
	}
	if task.Creator != nil {
		data["CreatorName"] = task.Creator.Name
	}
	m.background("task_assigned.tmpl", assignee.Email, data)
}

// TaskCompleted informs the task creator that the assignee completed it.
func (m *Mailer) TaskCompleted(task *models.Task, creator *models.User) {
	data := map[string]any{
		"Name":  creator.Name,
		"Title": task.Title,
	}
	if task.Assignee != nil {
		data["AssigneeName"] = task.Assignee.Name
	}
	m.background("task_completed.tmpl", creator.Email, data)
}

// Wait blocks until all in-flight sends finish. Used on shutdown.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) background(templateFile, to string, data any) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.send(to, templateFile, data); err != nil {
			m.logger.Error(context.Background(), "error sending email",
				"template", templateFile, "to", to, "error", err)
		}
	}()
}

func (m *Mailer) send(to, templateFile string, data any) error {
	tmpl, err := template.ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return err
	}

	var subject bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return err
	}
	var plainBody bytes.Buffer
	if err := tmpl.ExecuteTemplate(&plainBody, "plainBody", data); err != nil {
		return err
	}
	var htmlBody bytes.Buffer
	if err := tmpl.ExecuteTemplate(&htmlBody, "htmlBody", data); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	for i := 0; i < sendAttempts; i++ {
		if err = dialAndSend(m.dialer, msg); err == nil {
			return nil
		}
	}
	return err
}
