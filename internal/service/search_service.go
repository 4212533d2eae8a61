package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/d60-Lab/eip-site/internal/repository"
)

const (
	searchPageSize = 10
	searchPageMax  = 50
)

const (
	ResultPost        = "post"
	ResultPublication = "publication"
	ResultVacancy     = "vacancy"
)

// SearchResult 跨实体搜索的一条结果
type SearchResult struct {
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Slug    string    `json:"slug"`
	Summary string    `json:"summary,omitempty"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
}

// SearchPage 搜索结果页
type SearchPage struct {
	Page[SearchResult]
	Query string `json:"query"`
}

type SearchService interface {
	Search(ctx context.Context, q string, page, size int) (*SearchPage, error)
}

type searchService struct {
	posts        repository.PostRepository
	publications repository.PublicationRepository
	vacancies    repository.VacancyRepository
	clock        Clock
}

func NewSearchService(
	posts repository.PostRepository,
	publications repository.PublicationRepository,
	vacancies repository.VacancyRepository,
	clock Clock,
) SearchService {
	return &searchService{posts: posts, publications: publications, vacancies: vacancies, clock: clock}
}

// Search 合并三类结果，按日期倒序，同日期按类型和标题排序后分页
func (s *searchService) Search(ctx context.Context, q string, page, size int) (*SearchPage, error) {
	q = strings.TrimSpace(q)
	page, size, offset := paginate(page, size, searchPageSize, searchPageMax)
	if q == "" {
		return &SearchPage{Page: newPage([]SearchResult{}, 0, page, size), Query: q}, nil
	}
	now := s.clock.Now()

	posts, err := s.posts.Search(ctx, q, now)
	if err != nil {
		return nil, err
	}
	pubs, err := s.publications.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	vacancies, err := s.vacancies.Search(ctx, q, now)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(posts)+len(pubs)+len(vacancies))
	for _, p := range posts {
		var date time.Time
		if p.PublishedAt != nil {
			date = *p.PublishedAt
		}
		results = append(results, SearchResult{
			Type: ResultPost, Title: p.Title, Slug: p.Slug, Summary: p.Excerpt,
			Date: date, URL: "/api/v1/posts/" + p.Slug,
		})
	}
	for _, p := range pubs {
		results = append(results, SearchResult{
			Type: ResultPublication, Title: p.Title, Slug: p.Slug, Summary: truncateWords(p.Description, 30),
			Date: p.PublishedDate, URL: "/api/v1/publications/" + p.Slug,
		})
	}
	for _, v := range vacancies {
		results = append(results, SearchResult{
			Type: ResultVacancy, Title: v.Title, Slug: v.Slug, Summary: truncateWords(v.Description, 30),
			Date: v.CreatedAt, URL: "/api/v1/vacancies/" + v.Slug,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Title < b.Title
	})

	total := len(results)
	end := offset + size
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}
	return &SearchPage{Page: newPage(results[offset:end], int64(total), page, size), Query: q}, nil
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
