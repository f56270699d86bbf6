package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template names a predefined message.
type Template string

// TemplateMagicLink is the passwordless sign-in link.
const TemplateMagicLink Template = "magic_link"

// MagicLinkData holds data for TemplateMagicLink.
type MagicLinkData struct {
	Email     string
	LinkURL   string
	ExpiresIn string
	AppName   string
}

type templatePair struct {
	subject *texttemplate.Template
	body    *htmltemplate.Template
}

// TemplateEngine renders predefined messages. Subjects are plain text and
// bodies are contextually escaped HTML, so a javascript: link or markup in
// the data never reaches the mail client as-is.
type TemplateEngine struct {
	templates map[Template]templatePair
}

// NewTemplateEngine parses all predefined templates.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{templates: map[Template]templatePair{
		TemplateMagicLink: {
			subject: texttemplate.Must(texttemplate.New("magic_link_subject").Parse(magicLinkSubject)),
			body:    htmltemplate.Must(htmltemplate.New("magic_link").Parse(magicLinkBody)),
		},
	}}
}

// Render returns the subject and HTML body of tmpl.
func (e *TemplateEngine) Render(tmpl Template, data any) (string, string, error) {
	pair, ok := e.templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", tmpl)
	}

	var subject, body bytes.Buffer
	if err := pair.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("subject: %w", err)
	}
	if err := pair.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("body: %w", err)
	}
	return subject.String(), body.String(), nil
}

const magicLinkSubject = `Your sign-in link for {{.AppName}}`

const magicLinkBody = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.AppName}} sign-in</title>
</head>
<body style="margin:0;padding:24px;background:#f6f6f4;font-family:Helvetica,Arial,sans-serif;color:#1f2933;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="max-width:560px;margin:0 auto;background:#fff;border-radius:8px;">
<tr><td style="padding:32px;">
<p style="font-size:18px;font-weight:bold;margin:0 0 16px;">Sign in to {{.AppName}}</p>
<p style="margin:0 0 24px;">This link signs you in once and stops working after {{.ExpiresIn}}.</p>
<p style="margin:0 0 24px;"><a href="{{.LinkURL}}" style="background:#1f2933;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">Sign in</a></p>
<p style="margin:0 0 8px;font-size:13px;color:#52606d;">Or paste this address into your browser:</p>
<p style="margin:0 0 24px;font-size:12px;color:#52606d;word-break:break-all;">{{.LinkURL}}</p>
<p style="margin:0;font-size:12px;color:#7b8794;">Sent to {{.Email}}. If you did not ask to sign in, ignore this message.</p>
</td></tr>
</table>
</body>
</html>`
