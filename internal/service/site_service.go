package service

import (
	"context"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
)

const (
	homeNewsLimit         = 6
	homePrinciplesLimit   = 6
	homePublicationsLimit = 4
	whatWeDoLimit         = 6
)

// HomePage 首页聚合数据
type HomePage struct {
	Slides       []*model.SliderImage      `json:"slides"`
	News         []*model.Post             `json:"news"`
	Principles   []*model.GuidingPrinciple `json:"principles"`
	Partners     []*model.Partner          `json:"partners"`
	Publications []*model.Publication      `json:"publications"`
}

// SiteInfo 站点元数据
type SiteInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	Author      string `json:"author"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

type SiteService interface {
	Home(ctx context.Context) (*HomePage, error)
	Principles(ctx context.Context) ([]*model.GuidingPrinciple, error)
	Strategies(ctx context.Context) ([]*model.Strategy, error)
	Board(ctx context.Context) ([]*model.BoardMember, error)
	WhatWeDo(ctx context.Context) ([]*model.Post, error)
	Info() SiteInfo
	// InvalidateHome 站点内容在后台修改后调用
	InvalidateHome(ctx context.Context)
}

type siteService struct {
	site         repository.SiteRepository
	posts        repository.PostRepository
	publications repository.PublicationRepository
	cache        cache.Cache
	ttl          config.CacheConfig
	info         config.SiteConfig
	clock        Clock
}

func NewSiteService(
	site repository.SiteRepository,
	posts repository.PostRepository,
	publications repository.PublicationRepository,
	c cache.Cache,
	cfg *config.Config,
	clock Clock,
) SiteService {
	if c == nil {
		c = cache.Nop{}
	}
	return &siteService{
		site:         site,
		posts:        posts,
		publications: publications,
		cache:        c,
		ttl:          cfg.Cache,
		info:         cfg.Site,
		clock:        clock,
	}
}

// Home 缓存整个首页数据
func (s *siteService) Home(ctx context.Context) (*HomePage, error) {
	return cache.GetOrLoad(ctx, s.cache, cacheKeyHome, s.ttl.HomeTTL, s.loadHome)
}

func (s *siteService) loadHome(ctx context.Context) (*HomePage, error) {
	var (
		home HomePage
		err  error
	)
	if home.Slides, err = s.site.ActiveSlides(ctx); err != nil {
		return nil, err
	}
	news, _, err := s.posts.ListVisible(ctx, repository.PostFilter{Type: model.PostTypeNews}, s.clock.Now(), 0, homeNewsLimit)
	if err != nil {
		return nil, err
	}
	home.News = news
	if home.Principles, err = s.site.Principles(ctx, homePrinciplesLimit); err != nil {
		return nil, err
	}
	if home.Partners, err = s.site.ActivePartners(ctx); err != nil {
		return nil, err
	}
	if home.Publications, err = s.publications.Featured(ctx, homePublicationsLimit); err != nil {
		return nil, err
	}
	return &home, nil
}

func (s *siteService) Principles(ctx context.Context) ([]*model.GuidingPrinciple, error) {
	return s.site.Principles(ctx, 0)
}

func (s *siteService) Strategies(ctx context.Context) ([]*model.Strategy, error) {
	return s.site.Strategies(ctx)
}

func (s *siteService) Board(ctx context.Context) ([]*model.BoardMember, error) {
	return s.site.BoardMembers(ctx)
}

// WhatWeDo 分类名包含 "project" 的可见文章
func (s *siteService) WhatWeDo(ctx context.Context) ([]*model.Post, error) {
	return s.posts.ByCategoryNameLike(ctx, "project", s.clock.Now(), whatWeDoLimit)
}

func (s *siteService) Info() SiteInfo {
	return SiteInfo{
		Title:       s.info.Title,
		Description: s.info.Description,
		Keywords:    s.info.Keywords,
		Author:      s.info.Author,
		Image:       s.info.Image,
		URL:         s.info.URL,
	}
}

func (s *siteService) InvalidateHome(ctx context.Context) {
	invalidate(ctx, s.cache, cacheKeyHome)
}
