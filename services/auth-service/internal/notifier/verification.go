package notifier

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
)

// VerificationSubject is the subject line of every verification email.
const VerificationSubject = "Verify Your Email"

const htmlBody = `<p>Hi {{.Name}},</p>
<p>Click the link below to verify your email:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>If you did not create an account, you can ignore this email.</p>
`

const textBody = `Hi {{.Name}},

Open the link below to verify your email:

{{.URL}}

If you did not create an account, you can ignore this email.
`

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.New("verification.html").Parse(htmlBody))
	textTemplate = texttemplate.Must(texttemplate.New("verification.txt").Parse(textBody))
)

// HTMLSender delivers an HTML message with a plain text alternative.
type HTMLSender interface {
	SendHTML(to []string, subject, htmlBody, textBody string) error
}

// VerificationMailer emails verification links.
type VerificationMailer struct {
	baseURL string
	sender  HTMLSender
}

type emailParams struct {
	Name string
	URL  string
}

// NewVerificationMailer creates a VerificationMailer building links under baseURL.
func NewVerificationMailer(baseURL string, sender HTMLSender) *VerificationMailer {
	return &VerificationMailer{
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  sender,
	}
}

// VerificationURL returns the link that redeems token.
func (m *VerificationMailer) VerificationURL(token string) string {
	return m.baseURL + "/auth/verify-email?token=" + url.QueryEscape(token)
}

// SendVerification emails the verification link for token to email.
func (m *VerificationMailer) SendVerification(ctx context.Context, name, email, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := emailParams{Name: name, URL: m.VerificationURL(token)}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, params); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	if err := textTemplate.Execute(&text, params); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	return m.sender.SendHTML([]string{email}, VerificationSubject, html.String(), text.String())
}
