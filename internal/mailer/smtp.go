package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"cvintake/internal/config"
)

// SMTPTransport 通过 SMTP 中继（默认 Gmail）发送邮件。
type SMTPTransport struct {
	client *mail.Client
}

// NewSMTPTransport 创建客户端；465 端口使用隐式 TLS，其余端口强制 STARTTLS。
func NewSMTPTransport(cfg config.MailConfig) (*SMTPTransport, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("init smtp client %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &SMTPTransport{client: client}, nil
}

// Send 实现 Transport。每次发送单独建立连接。
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.FromName, msg.FromAddress); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
