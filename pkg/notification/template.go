package notification

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
)

func renderText(name, tmpl string, data map[string]string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := template.New(name).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(name, tmpl string, data map[string]string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := htmltemplate.New(name).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// textBody renders the plain text content of a notice, falling back to the
// pre-rendered body.
func textBody(notification NotificationData, template NoticeTemplate) (string, error) {
	if template.Text == "" {
		return notification.Body, nil
	}
	return renderText("text", template.Text, notification.Data)
}

func subject(notification NotificationData, template NoticeTemplate) (string, error) {
	if notification.Subject != "" {
		return notification.Subject, nil
	}
	return renderText("subject", template.Subject, notification.Data)
}
