// cachebench 对比公开读接口的三种缓存方式：无缓存、服务层片段缓存（首页/分类）
// 以及片段缓存 + 整页缓存。统计延迟分位、数据库查询次数和 Redis 占用。
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/admin"
	"github.com/d60-Lab/eip-site/internal/api"
	"github.com/d60-Lab/eip-site/internal/api/handler"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/notify"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/database"
	"github.com/d60-Lab/eip-site/pkg/mailer"
	"github.com/d60-Lab/eip-site/pkg/storage/memory"
)

const benchPrefix = "cachebench:"

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// queryCounter 通过 gorm 回调统计查询次数
type queryCounter struct{ n atomic.Int64 }

func (q *queryCounter) register(db *gorm.DB) {
	mustDo(db.Callback().Query().After("gorm:query").Register("cachebench:count", func(*gorm.DB) {
		q.n.Add(1)
	}))
	mustDo(db.Callback().Row().After("gorm:row").Register("cachebench:count_row", func(*gorm.DB) {
		q.n.Add(1)
	}))
}

func seed(ctx context.Context, db *gorm.DB, posts int) {
	taxonomy := repository.NewTaxonomyRepository(db)
	postRepo := repository.NewPostRepository(db)

	run := uuid.NewString()[:6]
	cats := make([]model.Category, 8)
	for i := range cats {
		cats[i] = model.Category{
			Name:     fmt.Sprintf("Bench %d", i),
			Slug:     fmt.Sprintf("bench-%s-%d", run, i),
			IsActive: true,
			Order:    i,
		}
		mustDo(taxonomy.CreateCategory(ctx, &cats[i]))
	}

	base := time.Now().UTC().Add(-time.Hour)
	types := []model.PostType{model.PostTypeNews, model.PostTypeBlog, model.PostTypeImplementation}
	for i := 0; i < posts; i++ {
		at := base.Add(-time.Duration(i) * time.Minute)
		p := &model.Post{
			Title:       fmt.Sprintf("Bench post %d", i),
			Slug:        fmt.Sprintf("bench-%s-%d", run, i),
			Excerpt:     "Community programme update",
			Body:        "Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
			PostType:    types[i%len(types)],
			Status:      model.PostStatusPublished,
			PublishedAt: &at,
			Categories:  []model.Category{cats[i%len(cats)]},
		}
		mustDo(postRepo.Create(ctx, p))
	}
	for i := 0; i < 4; i++ {
		mustDo(db.Create(&model.SliderImage{Title: fmt.Sprintf("Slide %d", i), IsActive: true, Order: i}).Error)
		mustDo(db.Create(&model.GuidingPrinciple{Title: fmt.Sprintf("Principle %d", i), Order: i}).Error)
	}
}

func buildRouter(cfg *config.Config, db *gorm.DB, c cache.Cache) *gin.Engine {
	posts := repository.NewPostRepository(db)
	taxonomy := repository.NewTaxonomyRepository(db)
	publications := repository.NewPublicationRepository(db)
	vacancies := repository.NewVacancyRepository(db)
	hits := service.NewHitWriter(posts, repository.NewStatRepository(db))
	notifier := notify.New(mailer.LogSender{}, cfg.Mail, cfg.Site)
	store := memory.New()
	var clock service.Clock
	authManager := auth.NewManager(cfg.Admin, cfg.JWT)

	h := handler.New(handler.Services{
		Posts:         service.NewPostService(posts, taxonomy, hits, c, cfg.Cache, clock),
		Taxonomy:      service.NewTaxonomyService(taxonomy, publications, c),
		Publications:  service.NewPublicationService(publications, hits, store, c, cfg, clock),
		Vacancies:     service.NewVacancyService(vacancies, repository.NewApplicationRepository(db), store, notifier, c, cfg.Intake, clock),
		Contacts:      service.NewContactService(repository.NewContactRepository(db), notifier, cfg.Intake),
		Subscriptions: service.NewSubscriptionService(repository.NewSubscriberRepository(db), notifier, cfg.Intake, clock),
		Search:        service.NewSearchService(posts, publications, vacancies, clock),
		Site:          service.NewSiteService(repository.NewSiteRepository(db), posts, publications, c, cfg, clock),
	}, admin.NewLister(db), authManager)
	return api.NewRouter(api.RouterDependencies{Config: cfg, Handler: h, Auth: authManager, Cache: c})
}

// makeRequests 热点分布：首页和分类占多数，其余是列表翻页
func makeRequests(n, pages int) []string {
	rng := rand.New(rand.NewSource(42))
	out := make([]string, n)
	for i := range out {
		switch r := rng.Float64(); {
		case r < 0.35:
			out[i] = "/api/v1/home"
		case r < 0.5:
			out[i] = "/api/v1/posts/categories"
		case r < 0.6:
			out[i] = "/api/v1/about/principles"
		default:
			page := 1 + int(math.Floor(math.Pow(rng.Float64(), 3)*float64(pages)))
			out[i] = fmt.Sprintf("/api/v1/posts?type=blog&page=%d", page)
		}
	}
	return out
}

type scenarioResult struct {
	durations []time.Duration
	queries   int64
	cacheKeys int
	memBytes  int64
}

func runScenario(ctx context.Context, r *gin.Engine, reqs []string, counter *queryCounter, c cache.Cache, client *redis.Client) scenarioResult {
	mustDo(c.DeleteByPrefix(ctx, ""))
	// 预热
	for _, path := range reqs {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	counter.n.Store(0)

	out := make([]time.Duration, 0, len(reqs))
	for _, path := range reqs {
		w := httptest.NewRecorder()
		st := time.Now()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		out = append(out, time.Since(st))
		if w.Code != http.StatusOK {
			panic(fmt.Sprintf("%s: status %d", path, w.Code))
		}
	}

	res := scenarioResult{durations: out, queries: counter.n.Load()}
	if client != nil {
		iter := client.Scan(ctx, 0, benchPrefix+"*", 500).Iterator()
		for iter.Next(ctx) {
			res.cacheKeys++
			if n, err := client.MemoryUsage(ctx, iter.Val()).Result(); err == nil {
				res.memBytes += n
			}
		}
		mustDo(iter.Err())
	}
	return res
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func main() {
	ctx := context.Background()
	gin.SetMode(gin.ReleaseMode)

	cfg := must(config.Load())
	cfg.Server.Mode = gin.ReleaseMode
	db := must(database.InitDB(cfg))
	defer func() { _ = database.Close(db) }()

	POSTS := envInt("POSTS", 2000)
	REQS := envInt("REQS", 5000)
	seed(ctx, db, POSTS)
	counter := &queryCounter{}
	counter.register(db)

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	mustDo(client.Ping(ctx).Err())
	redisCache := cache.NewRedisWithClient(client, benchPrefix)

	reqs := makeRequests(REQS, POSTS/3/9+1)
	pageTTL := cfg.Cache.PageTTL
	if pageTTL <= 0 {
		pageTTL = 5 * time.Minute
	}

	cfg.Cache.PageTTL = 0
	noCache := runScenario(ctx, buildRouter(cfg, db, cache.Nop{}), reqs, counter, cache.Nop{}, nil)
	fragment := runScenario(ctx, buildRouter(cfg, db, redisCache), reqs, counter, redisCache, client)
	cfg.Cache.PageTTL = pageTTL
	page := runScenario(ctx, buildRouter(cfg, db, redisCache), reqs, counter, redisCache, client)
	mustDo(redisCache.DeleteByPrefix(ctx, ""))

	fmt.Printf("\nPublic read latency (%d req, %d posts)\n", REQS, POSTS)
	for _, row := range []struct {
		name string
		res  scenarioResult
	}{
		{"No cache", noCache},
		{"Fragment cache", fragment},
		{"Fragment + page", page},
	} {
		fmt.Printf("%-16s avg=%v p95=%v p99=%v db_queries=%d cache_keys=%d mem=%s\n",
			row.name, avg(row.res.durations), pct(row.res.durations, 0.95), pct(row.res.durations, 0.99),
			row.res.queries, row.res.cacheKeys, formatBytes(row.res.memBytes))
	}
}
