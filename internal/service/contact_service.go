package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/notify"
	"github.com/d60-Lab/eip-site/internal/repository"
)

const (
	MsgContactReceived   = "Thank you for your message! We have sent a confirmation email and will get back to you soon."
	MsgSubscribed        = "Thank you for subscribing to our newsletter!"
	MsgAlreadySubscribed = "You are already subscribed!"
	MsgUnsubscribed      = "You have been unsubscribed."

	msgInvalidEmail    = "Please enter a valid email address"
	msgDisposableEmail = "Disposable email addresses are not allowed."
)

// ContactInput 联系表单
type ContactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	ClientIP string `json:"-"`
}

type ContactService interface {
	Submit(ctx context.Context, in ContactInput) (*model.ContactMessage, error)
	UpdateStatus(ctx context.Context, id string, status model.ContactStatus) error
}

type contactService struct {
	repo       repository.ContactRepository
	notifier   notify.Notifier
	minMessage int
}

func NewContactService(repo repository.ContactRepository, notifier notify.Notifier, intake config.IntakeConfig) ContactService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	minLen := intake.MinMessageLength
	if minLen <= 0 {
		minLen = 10
	}
	return &contactService{repo: repo, notifier: notifier, minMessage: minLen}
}

// Submit 校验并保存留言，随后发送通知；通知失败不影响结果
func (s *contactService) Submit(ctx context.Context, in ContactInput) (*model.ContactMessage, error) {
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"subject", in.Subject},
		{"message", in.Message},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, required(f.name)
		}
	}
	email := strings.TrimSpace(in.Email)
	if !validEmail(email) {
		return nil, invalid("email", msgInvalidEmail)
	}
	if tooLong(strings.TrimSpace(in.Name), 200) || tooLong(strings.TrimSpace(in.Subject), 200) {
		return nil, invalid("subject", "name and subject must be at most 200 characters")
	}
	if len([]rune(strings.TrimSpace(in.Message))) < s.minMessage {
		return nil, invalid("message", fmt.Sprintf("Message must be at least %d characters long.", s.minMessage))
	}

	m := &model.ContactMessage{
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Subject:   strings.TrimSpace(in.Subject),
		Message:   in.Message,
		Status:    model.ContactStatusNew,
		IPAddress: ipOrNil(in.ClientIP),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	s.notifier.ContactReceived(ctx, m)
	return m, nil
}

func (s *contactService) UpdateStatus(ctx context.Context, id string, status model.ContactStatus) error {
	if !status.Valid() {
		return invalid("status", "unknown status")
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

type SubscriptionService interface {
	// Subscribe 返回面向用户的提示文案
	Subscribe(ctx context.Context, email string) (string, error)
	Unsubscribe(ctx context.Context, token string) error
}

type subscriptionService struct {
	repo       repository.SubscriberRepository
	notifier   notify.Notifier
	disposable map[string]struct{}
	clock      Clock
}

func NewSubscriptionService(repo repository.SubscriberRepository, notifier notify.Notifier, intake config.IntakeConfig, clock Clock) SubscriptionService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	disposable := make(map[string]struct{}, len(intake.DisposableDomains))
	for _, d := range intake.DisposableDomains {
		disposable[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &subscriptionService{repo: repo, notifier: notifier, disposable: disposable, clock: clock}
}

func (s *subscriptionService) Subscribe(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "Email is required")
	}
	if !validEmail(email) {
		return "", invalid("email", msgInvalidEmail)
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if _, ok := s.disposable[domain]; ok {
		return "", invalid("email", msgDisposableEmail)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.IsActive {
			if err := s.repo.SetActive(ctx, existing.ID, true); err != nil {
				return "", err
			}
		}
		return MsgAlreadySubscribed, nil
	case !errors.Is(err, repository.ErrNotFound):
		return "", err
	}

	sub := &model.Subscriber{
		ID:           newID(),
		Email:        email,
		IsActive:     true,
		Token:        newID(),
		SubscribedAt: s.clock.Now(),
	}
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return "", err
	}
	if !created {
		return MsgAlreadySubscribed, nil
	}
	s.notifier.Subscribed(ctx, sub)
	return MsgSubscribed, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNotFound
	}
	return s.repo.DeactivateByToken(ctx, token)
}
