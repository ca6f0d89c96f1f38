package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

// 邮件主题。
const (
	ConfirmationSubject = "Application Received - Thank You!"
	FollowUpSubject     = "Your Application Status Update"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message 是一封待发送的 HTML 邮件。
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	HTML        string
}

// Transport 负责真正把邮件交给中继。
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer 渲染申请人邮件并交给 Transport 发送。
type Mailer struct {
	transport   Transport
	fromName    string
	fromAddress string
}

// New 返回 Mailer。fromName 同时作为邮件落款。
func New(transport Transport, fromName, fromAddress string) *Mailer {
	return &Mailer{
		transport:   transport,
		fromName:    fromName,
		fromAddress: fromAddress,
	}
}

type templateData struct {
	Name   string
	Sender string
}

// SendConfirmation 发送提交确认邮件。
func (m *Mailer) SendConfirmation(ctx context.Context, to, name string) error {
	return m.send(ctx, "confirmation.html", ConfirmationSubject, to, name)
}

// SendFollowUp 发送次日跟进邮件。
func (m *Mailer) SendFollowUp(ctx context.Context, to, name string) error {
	return m.send(ctx, "followup.html", FollowUpSubject, to, name)
}

func (m *Mailer) send(ctx context.Context, tmpl, subject, to, name string) error {
	html, err := render(tmpl, templateData{Name: name, Sender: m.fromName})
	if err != nil {
		return err
	}
	if err := m.transport.Send(ctx, Message{
		FromName:    m.fromName,
		FromAddress: m.fromAddress,
		To:          to,
		Subject:     subject,
		HTML:        html,
	}); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}
	return nil
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
