package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostIsVisible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		status PostStatus
		at     *time.Time
		want   bool
	}{
		{"published past", PostStatusPublished, &past, true},
		{"published exactly now", PostStatusPublished, &now, true},
		{"published future", PostStatusPublished, &future, false},
		{"published without timestamp", PostStatusPublished, nil, false},
		{"draft past", PostStatusDraft, &past, false},
		{"scheduled past", PostStatusScheduled, &past, false},
		{"archived past", PostStatusArchived, &past, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Post{Status: tc.status, PublishedAt: tc.at}
			assert.Equal(t, tc.want, p.IsVisible(now))
		})
	}
}

func TestPostStatusTransitions(t *testing.T) {
	allowed := [][2]PostStatus{
		{PostStatusDraft, PostStatusPublished},
		{PostStatusDraft, PostStatusScheduled},
		{PostStatusScheduled, PostStatusPublished},
		{PostStatusPublished, PostStatusArchived},
		{PostStatusArchived, PostStatusArchived},
	}
	for _, tr := range allowed {
		assert.True(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]PostStatus{
		{PostStatusArchived, PostStatusPublished},
		{PostStatusPublished, PostStatusDraft},
		{PostStatusScheduled, PostStatusArchived},
		{PostStatusDraft, PostStatusArchived},
	}
	for _, tr := range denied {
		assert.False(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestApplyStatusStampsOnlyWhenUnset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := &Post{Status: PostStatusDraft}
	p.ApplyStatus(PostStatusPublished, now)
	if assert.NotNil(t, p.PublishedAt) {
		assert.Equal(t, now, *p.PublishedAt)
	}

	future := now.Add(48 * time.Hour)
	s := &Post{Status: PostStatusScheduled, PublishedAt: &future}
	s.ApplyStatus(PostStatusPublished, now)
	assert.Equal(t, future, *s.PublishedAt)
	assert.False(t, s.IsVisible(now))
	assert.True(t, s.IsVisible(future))

	d := &Post{Status: PostStatusDraft}
	d.ApplyStatus(PostStatusScheduled, now)
	assert.Nil(t, d.PublishedAt)
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, (&Post{}).ReadingTime())
	assert.Equal(t, 1, (&Post{Body: strings.Repeat("word ", 200)}).ReadingTime())
	assert.Equal(t, 2, (&Post{Body: strings.Repeat("word ", 201)}).ReadingTime())
}

func TestVacancyIsOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	today := DateOf(now)

	v := &Vacancy{IsPublished: true, Deadline: today}
	assert.True(t, v.IsOpen(now))
	assert.Equal(t, 0, v.DaysRemaining(now))

	v.Deadline = today.AddDate(0, 0, -1)
	assert.False(t, v.IsOpen(now))
	assert.Equal(t, -1, v.DaysRemaining(now))

	v.Deadline = today.AddDate(0, 0, 7)
	v.IsPublished = false
	assert.False(t, v.IsOpen(now))
}
