// viewbench 并发访问文章详情，对比访问明细同步写入与队列写入两种路径，
// 并校验浏览数恰好增加 N。
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
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

func seedPost(ctx context.Context, posts repository.PostRepository, label string) *model.Post {
	now := time.Now().UTC().Add(-time.Minute)
	id := uuid.New().String()
	p := &model.Post{
		Base:        model.Base{ID: id},
		Title:       "viewbench " + label,
		Slug:        "viewbench-" + label + "-" + id[:8],
		PostType:    model.PostTypeBlog,
		Status:      model.PostStatusPublished,
		PublishedAt: &now,
	}
	if err := posts.Create(ctx, p); err != nil {
		panic(err)
	}
	return p
}

// fire 用 conc 个 goroutine 打 n 次详情，返回每次调用耗时
func fire(ctx context.Context, svc service.PostService, slug string, n, conc int) ([]time.Duration, time.Duration) {
	if conc > n {
		conc = n
	}
	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)

	recs := make(chan time.Duration, n)
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				ip := fmt.Sprintf("10.0.%d.%d", (i/250)%250, i%250+1)
				if _, err := svc.Detail(ctx, slug, ip); err != nil {
					fmt.Fprintln(os.Stderr, "detail:", err)
				}
				recs <- time.Since(st)
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)
	close(recs)

	out := make([]time.Duration, 0, n)
	for d := range recs {
		out = append(out, d)
	}
	return out, total
}

func check(ctx context.Context, posts repository.PostRepository, id string, want int) string {
	p, err := posts.GetByID(ctx, id)
	if err != nil {
		return "ERR " + err.Error()
	}
	if p.Views != int64(want) {
		return fmt.Sprintf("MISMATCH views=%d want=%d", p.Views, want)
	}
	return fmt.Sprintf("OK views=%d", p.Views)
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer func() { _ = database.Close(db) }()
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 16)
	WORKERS := envInt("WORKERS", 4)

	posts := repository.NewPostRepository(db)
	taxonomy := repository.NewTaxonomyRepository(db)
	stats := repository.NewStatRepository(db)
	writer := service.NewHitWriter(posts, stats)

	// 同步：请求内写 post_views 和 daily_stats
	syncPost := seedPost(ctx, posts, "sync")
	syncSvc := service.NewPostService(posts, taxonomy, writer, cache.Nop{}, cfg.Cache, nil)
	syncRecs, syncDur := fire(ctx, syncSvc, syncPost.Slug, N, CONC)

	// 队列：请求只入队明细，worker 落库；views 计数仍在请求内原子递增
	queue := service.NewHitQueue(writer, N)
	landing := queue.Metrics()
	landRecs := make([]time.Duration, 0, N)
	doneLand := make(chan struct{})
	go func() {
		defer close(doneLand)
		for d := range landing {
			landRecs = append(landRecs, d)
			if len(landRecs) == N {
				return
			}
		}
	}()
	maxQ := 0
	quitSample := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := queue.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	stop := queue.Start(WORKERS)
	asyncPost := seedPost(ctx, posts, "queued")
	asyncSvc := service.NewPostService(posts, taxonomy, queue, cache.Nop{}, cfg.Cache, nil)
	asyncRecs, asyncDur := fire(ctx, asyncSvc, asyncPost.Slug, N, CONC)
	close(quitSample)
	<-sampled

	drainStart := time.Now()
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	if err := stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "drain:", err)
	}
	cancel()
	drainDur := time.Since(drainStart)
	select {
	case <-doneLand:
	case <-time.After(time.Second):
	}

	fmt.Printf("N=%d, CONC=%d, WORKERS=%d\n", N, CONC, WORKERS)
	fmt.Printf("Sync detail total: %v, per op: %v, p50: %v, p95: %v, p99: %v, %s\n",
		syncDur, syncDur/time.Duration(N), pct(syncRecs, 0.50), pct(syncRecs, 0.95), pct(syncRecs, 0.99),
		check(ctx, posts, syncPost.ID, N))
	fmt.Printf("Queued detail total: %v, per op: %v, p50: %v, p95: %v, p99: %v, %s\n",
		asyncDur, asyncDur/time.Duration(N), pct(asyncRecs, 0.50), pct(asyncRecs, 0.95), pct(asyncRecs, 0.99),
		check(ctx, posts, asyncPost.ID, N))
	if len(landRecs) > 0 {
		fmt.Printf("Queue landing: samples=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d, drain=%v\n",
			len(landRecs), pct(landRecs, 0.50), pct(landRecs, 0.95), pct(landRecs, 0.99), maxQ, drainDur)
	}
}
