package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/pkg/mail"
)

// Notifier delivers the access URL for a freshly issued grant to the
// purchaser. Delivery is best-effort: a failed send never invalidates the
// grant.
type Notifier interface {
	Send(ctx context.Context, grant *models.Grant) error
}

// NopNotifier discards notifications. Used when e-mail delivery is disabled.
type NopNotifier struct{}

// Send implements Notifier.
func (NopNotifier) Send(context.Context, *models.Grant) error { return nil }

// AccessURL composes the bearer URL that unlocks a page:
// <base>/pages/<slug>?token=<token>.
func AccessURL(baseURL, slug, token string) string {
	base := strings.TrimRight(baseURL, "/")
	return fmt.Sprintf("%s/pages/%s?token=%s", base, url.PathEscape(slug), url.QueryEscape(token))
}

var accessMailTemplate = template.Must(template.New("access").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <p>Hi <strong>{{.FirstName}}</strong>,</p>
  <p>Thank you for your purchase! Your content is now available.</p>
  <p><strong>{{.PageTitle}}</strong></p>
  <p><a href="{{.AccessURL}}">Open your content</a></p>
  <p style="font-size: 12px; color: #666;">Bookmark this link &mdash; anyone
  with it can open the page, and it does not expire.</p>
  <p>Best regards,<br><strong>{{.SiteName}}</strong></p>
</body>
</html>`))

type accessMailData struct {
	FirstName string
	PageTitle string
	AccessURL template.URL
	SiteName  string
}

// MailNotifier sends access e-mails through the configured SMTP mailer.
type MailNotifier struct {
	mailer   mail.Mailer
	pages    *PageService
	baseURL  string
	siteName string
}

// NewMailNotifier constructs a MailNotifier.
func NewMailNotifier(mailer mail.Mailer, pages *PageService, baseURL, siteName string) (*MailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("mail notifier: mailer is required")
	}
	if pages == nil {
		return nil, errors.New("mail notifier: page service is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("mail notifier: base url is required")
	}
	if siteName == "" {
		siteName = "PagePass"
	}
	return &MailNotifier{
		mailer:   mailer,
		pages:    pages,
		baseURL:  baseURL,
		siteName: siteName,
	}, nil
}

// Send composes and dispatches the access e-mail for a grant.
func (n *MailNotifier) Send(ctx context.Context, grant *models.Grant) error {
	if grant == nil {
		return errors.New("mail notifier: grant is required")
	}
	if strings.TrimSpace(grant.Email) == "" {
		return errors.New("mail notifier: grant has no purchaser email")
	}

	page, err := n.pages.GetByID(ctx, grant.PageID)
	if err != nil {
		return fmt.Errorf("mail notifier: resolve page: %w", err)
	}

	first := grant.FirstName
	if first == "" {
		first = "there"
	}

	var body bytes.Buffer
	if err := accessMailTemplate.Execute(&body, accessMailData{
		FirstName: first,
		PageTitle: page.Title,
		AccessURL: template.URL(AccessURL(n.baseURL, page.Slug, grant.Token)),
		SiteName:  n.siteName,
	}); err != nil {
		return fmt.Errorf("mail notifier: render body: %w", err)
	}

	msg := mail.Message{
		To:      []string{grant.Email},
		Subject: fmt.Sprintf("Your access link - %s", n.siteName),
		Body:    body.String(),
		HTML:    true,
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			return nil
		}
		return fmt.Errorf("mail notifier: send: %w", err)
	}
	return nil
}
