// Package notify sends the admin alerts and acknowledgement emails that
// follow a submission. Delivery never fails the submission itself.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/pkg/logger"
	"github.com/d60-Lab/eip-site/pkg/mailer"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"fmtTime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
	"fmtDate": func(t time.Time) string { return t.UTC().Format("January 2, 2006") },
}).ParseFS(templateFS, "templates/*.md.tmpl"))

// Notifier 提交后的邮件通知；所有方法都不返回错误
type Notifier interface {
	ContactReceived(ctx context.Context, m *model.ContactMessage)
	ApplicationReceived(ctx context.Context, v *model.Vacancy, a *model.Application)
	Subscribed(ctx context.Context, s *model.Subscriber)
}

type mailNotifier struct {
	sender     mailer.Sender
	adminEmail string
	siteTitle  string
	siteURL    string
	timeout    time.Duration
	md         goldmark.Markdown
}

func New(sender mailer.Sender, mail config.MailConfig, site config.SiteConfig) Notifier {
	timeout := mail.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	title := site.Title
	if title == "" {
		title = "EIP Ethiopia"
	}
	return &mailNotifier{
		sender:     sender,
		adminEmail: mail.AdminEmail,
		siteTitle:  title,
		siteURL:    strings.TrimRight(site.URL, "/"),
		timeout:    timeout,
		md:         goldmark.New(),
	}
}

func (n *mailNotifier) ContactReceived(ctx context.Context, m *model.ContactMessage) {
	data := map[string]any{
		"Message":   m,
		"IP":        deref(m.IPAddress),
		"SiteTitle": n.siteTitle,
		"AdminURL":  n.siteURL + "/api/v1/admin/entities/contacts?q=" + url.QueryEscape(m.Email),
	}
	if n.adminEmail != "" {
		n.deliver(ctx, "contact_notification", []string{n.adminEmail},
			"New Contact Message: "+m.Subject, data)
	}
	n.deliver(ctx, "contact_auto_reply", []string{m.Email},
		"Thank you for contacting "+n.siteTitle, data)
}

func (n *mailNotifier) ApplicationReceived(ctx context.Context, v *model.Vacancy, a *model.Application) {
	data := map[string]any{
		"Vacancy":     v,
		"Application": a,
		"IP":          deref(a.IPAddress),
		"SiteTitle":   n.siteTitle,
		"AdminURL":    n.siteURL + "/api/v1/admin/vacancies/" + v.ID + "/applications",
	}
	if n.adminEmail != "" {
		n.deliver(ctx, "application_notification", []string{n.adminEmail},
			"New Application: "+v.Title, data)
	}
	n.deliver(ctx, "application_confirmation", []string{a.Email},
		"Application Received: "+v.Title, data)
}

func (n *mailNotifier) Subscribed(ctx context.Context, s *model.Subscriber) {
	data := map[string]any{
		"Subscriber":     s,
		"SiteTitle":      n.siteTitle,
		"UnsubscribeURL": n.siteURL + "/api/v1/unsubscribe/" + s.Token,
	}
	n.deliver(ctx, "subscription_welcome", []string{s.Email},
		"Welcome to the "+n.siteTitle+" newsletter", data)
	if n.adminEmail != "" {
		n.deliver(ctx, "subscription_alert", []string{n.adminEmail},
			"New newsletter subscriber", data)
	}
}

// deliver 单次尝试，带超时；panic 与错误只记录日志
func (n *mailNotifier) deliver(ctx context.Context, name string, to []string, subject string, data any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("notification panicked", zap.String("template", name), zap.Any("panic", r))
		}
	}()

	msg, err := n.render(name, data)
	if err != nil {
		logger.Warn("render notification failed", zap.String("template", name), zap.Error(err))
		return
	}
	msg.To = to
	msg.Subject = subject

	// 请求结束不应中断发送，只受超时约束
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.sender.Send(ctx, msg); err != nil {
		logger.Warn("send notification failed",
			zap.String("template", name),
			zap.Strings("to", to),
			zap.Error(err),
		)
	}
}

func (n *mailNotifier) render(name string, data any) (mailer.Message, error) {
	var text bytes.Buffer
	if err := templates.ExecuteTemplate(&text, name+".md.tmpl", data); err != nil {
		return mailer.Message{}, fmt.Errorf("execute template: %w", err)
	}
	var html bytes.Buffer
	if err := n.md.Convert(text.Bytes(), &html); err != nil {
		return mailer.Message{}, fmt.Errorf("render markdown: %w", err)
	}
	return mailer.Message{Text: text.String(), HTML: html.String()}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Nop 不发送任何通知
type Nop struct{}

func (Nop) ContactReceived(context.Context, *model.ContactMessage) {}
func (Nop) ApplicationReceived(context.Context, *model.Vacancy, *model.Application) {}
func (Nop) Subscribed(context.Context, *model.Subscriber) {}
