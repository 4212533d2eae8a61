package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
)

func TestHomePageCachedAndInvalidated(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	site := NewSiteService(e.site, e.posts, e.publications, e.cache, e.cfg, e.clock)
	posts := e.postService()

	require.NoError(t, e.db.Create(&[]model.SliderImage{
		{Title: "Hidden", IsActive: false, Order: 0},
		{Title: "Second", IsActive: true, Order: 2},
		{Title: "First", IsActive: true, Order: 1},
	}).Error)
	for i := 0; i < 8; i++ {
		require.NoError(t, e.db.Create(&model.GuidingPrinciple{Title: "P", Order: i}).Error)
	}
	_, err := posts.Create(ctx, PostInput{Title: "News one", PostType: model.PostTypeNews, Status: model.PostStatusPublished})
	require.NoError(t, err)
	_, err = posts.Create(ctx, PostInput{Title: "Blog one", Status: model.PostStatusPublished})
	require.NoError(t, err)

	home, err := site.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home.Slides, 2)
	assert.Equal(t, "First", home.Slides[0].Title)
	assert.Len(t, home.Principles, homePrinciplesLimit)
	require.Len(t, home.News, 1)
	assert.Equal(t, "News one", home.News[0].Title)
	assert.True(t, e.redis.Exists("test:"+cacheKeyHome))

	// 缓存命中时不反映数据库的直接修改
	require.NoError(t, e.db.Create(&model.SliderImage{Title: "Third", IsActive: true, Order: 3}).Error)
	home, err = site.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Slides, 2)

	site.InvalidateHome(ctx)
	home, err = site.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Slides, 3)

	all, err := site.Principles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 8)
	assert.Equal(t, "EIP Ethiopia", site.Info().Title)
}

func TestWhatWeDoUsesProjectCategories(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	site := NewSiteService(e.site, e.posts, e.publications, e.cache, e.cfg, e.clock)
	posts := e.postService()

	projects := seedCategory(t, e, "Community Projects")
	other := seedCategory(t, e, "Events")
	_, err := posts.Create(ctx, PostInput{Title: "Borehole", Status: model.PostStatusPublished, CategoryIDs: []string{projects.ID}})
	require.NoError(t, err)
	_, err = posts.Create(ctx, PostInput{Title: "Gala", Status: model.PostStatusPublished, CategoryIDs: []string{other.ID}})
	require.NoError(t, err)

	items, err := site.WhatWeDo(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Borehole", items[0].Title)
}

func TestHitQueueDrainsOnStop(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p, err := e.postService().Create(ctx, PostInput{Title: "Queued", Status: model.PostStatusPublished})
	require.NoError(t, err)

	q := NewHitQueue(NewHitWriter(e.posts, e.stats), 100)
	stop := q.Start(2)
	for i := 0; i < 10; i++ {
		q.Record(ctx, Hit{Kind: repository.StatPostView, EntityID: p.ID, At: testNow})
	}
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))
	assert.Zero(t, q.QueueLen())

	hits, err := e.stats.Hits(ctx, repository.StatPostView, p.ID, testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 10, hits)

	var views int64
	require.NoError(t, e.db.Model(&model.PostView{}).Where("post_id = ?", p.ID).Count(&views).Error)
	assert.EqualValues(t, 10, views)

	select {
	case d := <-q.Metrics():
		assert.GreaterOrEqual(t, d, time.Duration(0))
	default:
		t.Fatal("expected a latency sample")
	}
}

type countingRecorder struct{ n int }

func (c *countingRecorder) Record(context.Context, Hit) { c.n++ }

func TestHitQueueDropsWhenFull(t *testing.T) {
	rec := &countingRecorder{}
	q := NewHitQueue(rec, 1)
	q.Record(context.Background(), Hit{Kind: repository.StatPostView, EntityID: "a"})
	q.Record(context.Background(), Hit{Kind: repository.StatPostView, EntityID: "b"})
	assert.Equal(t, 1, q.QueueLen())

	require.NoError(t, q.Start(1)(context.Background()))
	assert.Equal(t, 1, rec.n)
}
