package mailer

import (
	"bytes"
	"html/template"
	"net/url"
	"time"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`<p>Hello {{.Name}},</p>
<p>Thanks for signing up to {{.App}}. Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>This link will expire in {{.Minutes}} minutes.</p>
<p>If you did not create an account, please ignore this email.</p>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset the password for your {{.App}} account.</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>This link will expire in {{.Minutes}} minutes.</p>
<p>If you did not request a password reset, please ignore this email.</p>`))

type templateData struct {
	Name    string
	App     string
	Link    string
	Minutes int
}

// Composer renders the account emails with links into the frontend.
type Composer struct {
	appName string
	baseURL string
}

func NewComposer(appName, baseURL string) *Composer {
	return &Composer{appName: appName, baseURL: baseURL}
}

func (c *Composer) Verification(to, name, token string, ttl time.Duration) (Message, error) {
	return c.render(verificationTemplate, "Verify your email address", to, name, "/verify-email", token, ttl)
}

func (c *Composer) PasswordReset(to, name, token string, ttl time.Duration) (Message, error) {
	return c.render(resetTemplate, "Reset your password", to, name, "/reset-password", token, ttl)
}

func (c *Composer) render(tpl *template.Template, subject, to, name, path, token string, ttl time.Duration) (Message, error) {
	link := c.baseURL + path + "?token=" + url.QueryEscape(token)

	var body bytes.Buffer
	err := tpl.Execute(&body, templateData{
		Name:    name,
		App:     c.appName,
		Link:    link,
		Minutes: int(ttl / time.Minute),
	})
	if err != nil {
		return Message{}, err
	}

	return Message{To: to, Subject: subject, HTMLBody: body.String()}, nil
}
