// Package mail renders project offer emails for notified employees.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/nhle/dev-tracker/internal/model"
)

// Sender delivers a rendered RFC 5322 message. Delivery transport is
// pluggable; the caller wires an SMTP relay or a test capture.
type Sender func(ctx context.Context, from string, to []string, msg []byte) error

// Mailer renders offer notifications and hands them to a Sender.
type Mailer struct {
	from   string
	send   Sender
	logger zerolog.Logger
}

// NewMailer creates a mailer. send may be nil, in which case rendered
// messages are dropped after logging.
func NewMailer(from string, send Sender, logger zerolog.Logger) *Mailer {
	return &Mailer{
		from:   from,
		send:   send,
		logger: logger.With().Str("component", "mail").Logger(),
	}
}

// OfferNotification renders and delivers a project offer to one employee.
// Employees without an email address are skipped silently.
func (m *Mailer) OfferNotification(ctx context.Context, emp model.Employee, project model.Project) error {
	if emp.Email == "" {
		return nil
	}

	msg, err := m.render(emp, project)
	if err != nil {
		return fmt.Errorf("rendering offer for %s: %w", emp.Email, err)
	}

	if m.send == nil {
		m.logger.Debug().
			Str("to", emp.Email).
			Str("project_id", project.ID).
			Msg("no sender configured, offer mail dropped")
		return nil
	}
	return m.send(ctx, m.from, []string{emp.Email}, msg)
}

// render builds the RFC 5322 message bytes for an offer.
func (m *Mailer) render(emp model.Employee, project model.Project) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now().UTC())
	h.SetAddressList("From", []*mail.Address{{Address: m.from}})
	h.SetAddressList("To", []*mail.Address{{Name: emp.Name, Address: emp.Email}})
	h.SetSubject(fmt.Sprintf("New project offer: %s", project.Title))

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nA new project is open for assignment.\n\nTitle: %s\nPriority: %d\n",
		emp.Name, project.Title, project.Priority,
	)
	if project.Description != "" {
		body += fmt.Sprintf("Description: %s\n", project.Description)
	}
	if project.Deadline != nil {
		body += fmt.Sprintf("Deadline: %s\n", project.Deadline.Format("2006-01-02"))
	}
	body += "\nAccept or reject the offer from your dashboard.\n"

	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}
