package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/logger"
)

// Hit 一次内容访问（文章浏览或出版物下载）
type Hit struct {
	Kind     string // repository.StatPostView / repository.StatPublicationFetch
	EntityID string
	IP       *string
	At       time.Time

	enqAt time.Time
}

// HitRecorder 记录访问明细；计数本身由仓储原子递增，不经过这里
type HitRecorder interface {
	Record(ctx context.Context, h Hit)
}

// HitWriter 同步写入浏览明细和日统计，失败只记日志
type HitWriter struct {
	posts repository.PostRepository
	stats repository.StatRepository
}

func NewHitWriter(posts repository.PostRepository, stats repository.StatRepository) *HitWriter {
	return &HitWriter{posts: posts, stats: stats}
}

func (w *HitWriter) Record(ctx context.Context, h Hit) {
	if h.Kind == repository.StatPostView {
		view := &model.PostView{ID: newID(), PostID: h.EntityID, IPAddress: h.IP, ViewedAt: h.At}
		if err := w.posts.RecordView(ctx, view); err != nil {
			logger.Warn("record post view failed", zap.String("post_id", h.EntityID), zap.Error(err))
		}
	}
	if err := w.stats.Record(ctx, h.Kind, h.EntityID, h.At); err != nil {
		logger.Warn("record daily stat failed",
			zap.String("kind", h.Kind),
			zap.String("entity_id", h.EntityID),
			zap.Error(err),
		)
	}
}

// HitQueue 本地异步写入：调用方只负责入队，worker 调用 next 落库。
// 队列满时丢弃并告警。服务端默认使用同步的 HitWriter，队列供压测工具对比使用。
type HitQueue struct {
	next      HitRecorder
	ch        chan Hit
	metricsCh chan time.Duration
	stopCh    chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
}

func NewHitQueue(next HitRecorder, queueSize int) *HitQueue {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &HitQueue{
		next:      next,
		ch:        make(chan Hit, queueSize),
		metricsCh: make(chan time.Duration, 65536),
		stopCh:    make(chan struct{}),
	}
}

// Start 启动 worker，返回的 stop 函数会排空队列后返回（或 ctx 到期）
func (q *HitQueue) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return func(ctx context.Context) error {
		q.once.Do(func() { close(q.stopCh) })
		done := make(chan struct{})
		go func() {
			q.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *HitQueue) work() {
	defer q.wg.Done()
	for {
		select {
		case h := <-q.ch:
			q.handle(h)
		case <-q.stopCh:
			// 退出前处理完已入队的记录
			for {
				select {
				case h := <-q.ch:
					q.handle(h)
				default:
					return
				}
			}
		}
	}
}

func (q *HitQueue) handle(h Hit) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	q.next.Record(ctx, h)
	cancel()
	if !h.enqAt.IsZero() {
		select {
		case q.metricsCh <- time.Since(h.enqAt):
		default:
		}
	}
}

func (q *HitQueue) Record(_ context.Context, h Hit) {
	h.enqAt = time.Now()
	select {
	case q.ch <- h:
	default:
		logger.Warn("hit queue full, drop", zap.String("kind", h.Kind), zap.String("entity_id", h.EntityID))
	}
}

// Metrics 每落库一条发送一次入队到落库的耗时
func (q *HitQueue) Metrics() <-chan time.Duration { return q.metricsCh }

// QueueLen 当前队列长度（采样值）
func (q *HitQueue) QueueLen() int { return len(q.ch) }
