package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eip-site/internal/model"
)

func TestContactSubmit(t *testing.T) {
	e := newTestEnv(t)
	svc := NewContactService(e.contacts, e.notifier, e.cfg.Intake)
	ctx := context.Background()

	m, err := svc.Submit(ctx, ContactInput{
		Name:     "Hana",
		Email:    "hana@example.org",
		Subject:  "Partnership",
		Message:  "We would like to partner with you.",
		ClientIP: "198.51.100.7",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusNew, m.Status)
	require.NotNil(t, m.IPAddress)
	assert.Equal(t, "198.51.100.7", *m.IPAddress)

	msgs := e.mail.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "New Contact Message: Partnership", msgs[0].Subject)
	assert.Equal(t, "Thank you for contacting EIP Ethiopia", msgs[1].Subject)
	assert.Equal(t, []string{"hana@example.org"}, msgs[1].To)

	require.NoError(t, svc.UpdateStatus(ctx, m.ID, model.ContactStatusRead))
	got, err := e.contacts.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusRead, got.Status)

	assertValidation(t, svc.UpdateStatus(ctx, m.ID, "spam"), "status")
	assert.ErrorIs(t, svc.UpdateStatus(ctx, "missing", model.ContactStatusReplied), ErrNotFound)
}

func TestContactSubmitValidation(t *testing.T) {
	e := newTestEnv(t)
	svc := NewContactService(e.contacts, e.notifier, e.cfg.Intake)
	ctx := context.Background()
	base := ContactInput{Name: "A", Email: "a@example.org", Subject: "S", Message: "long enough message"}

	in := base
	in.Message = "too short"
	_, err := svc.Submit(ctx, in)
	ve := assertValidation(t, err, "message")
	assert.Equal(t, "Message must be at least 10 characters long.", ve.Message)

	in = base
	in.Email = "nope"
	_, err = svc.Submit(ctx, in)
	assertValidation(t, err, "email")

	in = base
	in.Subject = " "
	_, err = svc.Submit(ctx, in)
	assertValidation(t, err, "subject")

	var n int64
	require.NoError(t, e.db.Model(&model.ContactMessage{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, e.mail.Messages())
}

func TestContactPersistedWhenMailFails(t *testing.T) {
	e := newTestEnv(t)
	e.mail.Err = errors.New("smtp down")
	svc := NewContactService(e.contacts, e.notifier, e.cfg.Intake)

	m, err := svc.Submit(context.Background(), ContactInput{
		Name: "A", Email: "a@example.org", Subject: "S", Message: "long enough message",
	})
	require.NoError(t, err)
	_, err = e.contacts.GetByID(context.Background(), m.ID)
	assert.NoError(t, err)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	svc := NewSubscriptionService(e.subscribers, e.notifier, e.cfg.Intake, e.clock)
	ctx := context.Background()

	msg, err := svc.Subscribe(ctx, "Reader@Example.org ")
	require.NoError(t, err)
	assert.Equal(t, MsgSubscribed, msg)

	msg, err = svc.Subscribe(ctx, "reader@example.org")
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadySubscribed, msg)

	n, err := e.subscribers.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// 只有首次订阅发送欢迎邮件
	assert.Len(t, e.mail.Messages(), 2)

	sub, err := e.subscribers.GetByEmail(ctx, "reader@example.org")
	require.NoError(t, err)
	assert.True(t, sub.SubscribedAt.Equal(testNow))

	require.NoError(t, svc.Unsubscribe(ctx, sub.Token))
	sub, err = e.subscribers.GetByEmail(ctx, "reader@example.org")
	require.NoError(t, err)
	assert.False(t, sub.IsActive)

	// 重新订阅会恢复
	msg, err = svc.Subscribe(ctx, "reader@example.org")
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadySubscribed, msg)
	sub, err = e.subscribers.GetByEmail(ctx, "reader@example.org")
	require.NoError(t, err)
	assert.True(t, sub.IsActive)

	assert.ErrorIs(t, svc.Unsubscribe(ctx, "bogus"), ErrNotFound)
	assert.ErrorIs(t, svc.Unsubscribe(ctx, ""), ErrNotFound)
}

func TestSubscribeValidation(t *testing.T) {
	e := newTestEnv(t)
	svc := NewSubscriptionService(e.subscribers, e.notifier, e.cfg.Intake, e.clock)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, "")
	ve := assertValidation(t, err, "email")
	assert.Equal(t, "Email is required", ve.Message)

	_, err = svc.Subscribe(ctx, "not-an-email")
	ve = assertValidation(t, err, "email")
	assert.Equal(t, msgInvalidEmail, ve.Message)

	_, err = svc.Subscribe(ctx, "x@Mailinator.com")
	ve = assertValidation(t, err, "email")
	assert.Equal(t, msgDisposableEmail, ve.Message)

	n, err := e.subscribers.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
