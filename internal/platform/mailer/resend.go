// Package mailer sends transactional email through Resend.
package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// Mailer abstracts outbound email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendMailer is the production implementation.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds the mailer; an empty API key yields a disabled
// mailer whose sends fail fast.
func NewResendMailer(apiKey, from string) *ResendMailer {
	if apiKey == "" {
		return &ResendMailer{from: from}
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.client == nil {
		return fmt.Errorf("mailer: resend api key not configured")
	}
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	return err
}
