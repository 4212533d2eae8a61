package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/pkg/mailer"
)

type panicSender struct{}

func (panicSender) Send(context.Context, mailer.Message) error { panic("boom") }

func newNotifier(s mailer.Sender) Notifier {
	return New(s,
		config.MailConfig{AdminEmail: "admin@example.org", Timeout: time.Second},
		config.SiteConfig{Title: "EIP Ethiopia", URL: "https://eip.example.org/"},
	)
}

func TestContactReceivedSendsAlertAndReply(t *testing.T) {
	rec := &mailer.Recorder{}
	ip := "203.0.113.7"
	newNotifier(rec).ContactReceived(context.Background(), &model.ContactMessage{
		Name: "Abebe", Email: "abebe@example.org", Subject: "Partnership",
		Message: "We would like to partner with you.", IPAddress: &ip,
	})

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"admin@example.org"}, msgs[0].To)
	assert.Equal(t, "New Contact Message: Partnership", msgs[0].Subject)
	assert.Contains(t, msgs[0].Text, "203.0.113.7")
	assert.Contains(t, msgs[0].HTML, "<strong>From:</strong>")

	assert.Equal(t, []string{"abebe@example.org"}, msgs[1].To)
	assert.Equal(t, "Thank you for contacting EIP Ethiopia", msgs[1].Subject)
	assert.Contains(t, msgs[1].HTML, "<blockquote>")
}

func TestApplicationReceived(t *testing.T) {
	rec := &mailer.Recorder{}
	v := &model.Vacancy{Base: model.Base{ID: "v1"}, Title: "Field Officer", Deadline: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	a := &model.Application{FullName: "Sara", Email: "sara@example.org", Resume: "applications/resumes/x.pdf", AppliedAt: time.Now()}
	newNotifier(rec).ApplicationReceived(context.Background(), v, a)

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "New Application: Field Officer", msgs[0].Subject)
	assert.Contains(t, msgs[0].Text, "https://eip.example.org/api/v1/admin/vacancies/v1/applications")
	assert.Equal(t, "Application Received: Field Officer", msgs[1].Subject)
	assert.Contains(t, msgs[1].Text, "May 1, 2026")
}

func TestSubscribedIncludesUnsubscribeLink(t *testing.T) {
	rec := &mailer.Recorder{}
	newNotifier(rec).Subscribed(context.Background(), &model.Subscriber{Email: "a@example.org", Token: "tok"})

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].HTML, `href="https://eip.example.org/api/v1/unsubscribe/tok"`)
}

func TestFailuresAreContained(t *testing.T) {
	m := &model.ContactMessage{Name: "n", Email: "n@example.org", Subject: "s", Message: "long enough"}

	assert.NotPanics(t, func() {
		newNotifier(panicSender{}).ContactReceived(context.Background(), m)
	})
	assert.NotPanics(t, func() {
		newNotifier(&mailer.Recorder{Err: errors.New("smtp down")}).ContactReceived(context.Background(), m)
	})

	// 请求已取消也照常尝试发送
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &mailer.Recorder{}
	newNotifier(rec).ContactReceived(ctx, m)
	assert.Len(t, rec.Messages(), 2)
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	n.Subscribed(context.Background(), &model.Subscriber{})
}
