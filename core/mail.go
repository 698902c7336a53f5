package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"net/mail"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain content

		// optional html body, rendered from HTMLTemplate with TemplateData
		HTMLTemplate *htmltmpl.Template
		TemplateData interface{}

		TextContent string
		HTMLContent string
		Attachments []Attachment
	}

	Attachment struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Base64 returns the attachment content in standard base64, as mail bodies carry it.
func (a Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

func (m *EmailMessage) Render() error {
	m.TextContent = m.BodyStr
	if m.HTMLTemplate == nil {
		return nil
	}
	var buff bytes.Buffer
	if err := m.HTMLTemplate.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
