package middleware

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/logger"
)

// 命中时的响应头，方便排查
const cacheHeader = "X-Cache"

// 公开接口实际读取的查询参数，其余参数不参与 key，避免任意参数撑爆缓存
var pageCacheParams = []string{"category", "page", "page_size", "q", "tag", "type"}

// pageCacheKey 路径 + 规范化后的查询参数（按名字排序，每个参数只取第一个值）
func pageCacheKey(u *url.URL) string {
	query := u.Query()
	kept := url.Values{}
	for _, name := range pageCacheParams {
		if v := query.Get(name); v != "" {
			kept.Set(name, v)
		}
	}
	key := service.PageCachePrefix + u.Path
	if len(kept) > 0 {
		key += "?" + kept.Encode()
	}
	return key
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// PageCache 缓存公开 GET 接口的 200 JSON 响应，key 见 pageCacheKey。
// 内容写操作通过 DeleteByPrefix 统一失效。
func PageCache(c cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil || ttl <= 0 || ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}
		key := pageCacheKey(ctx.Request.URL)
		if data, err := c.Get(ctx.Request.Context(), key); err == nil {
			ctx.Header(cacheHeader, "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", data)
			ctx.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: ctx.Writer}
		ctx.Writer = rec
		ctx.Header(cacheHeader, "MISS")
		ctx.Next()

		if rec.Status() != http.StatusOK || rec.buf.Len() == 0 {
			return
		}
		if err := c.Set(ctx.Request.Context(), key, rec.buf.Bytes(), ttl); err != nil {
			logger.Warn("page cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
}
