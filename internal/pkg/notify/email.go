package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"recipebox/internal/config"
	"recipebox/internal/model"

	"gopkg.in/gomail.v2"
)

// Sender 发送一封已构造好的邮件；默认实现为 gomail 的 SMTP Dialer。
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
	sender Sender
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		sender: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}
}

// WithSender 替换底层发送器（测试用）。
func (n *EmailNotifier) WithSender(s Sender) *EmailNotifier {
	n.sender = s
	return n
}

func (n *EmailNotifier) configured() bool {
	return n.cfg != nil && n.cfg.SMTPHost != "" && n.cfg.SMTPUser != "" && n.cfg.FromEmail != ""
}

// Welcome 发送注册欢迎邮件。
func (n *EmailNotifier) Welcome(ctx context.Context, user *model.User) error {
	if !n.configured() {
		return ErrNotConfigured
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", "[RecipeBox] Welcome!")
	m.SetBody("text/html", buildWelcomeBody(user.Name))

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("welcome email sent", slog.String("to", user.Email))
	}
	return nil
}

func buildWelcomeBody(name string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to RecipeBox, %s!</h2>
    <p>Search recipes by the ingredients you already have and keep your favorites in one place.</p>
  </div>
</body>
</html>`, html.EscapeString(name))
}
