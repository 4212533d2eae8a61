package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ErrDuplicate 唯一索引冲突（如 slug、email）
var ErrDuplicate = errors.New("duplicate record")

// translate 把 gorm 错误映射为仓储层错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// likePattern 转义 LIKE 通配符并转为小写子串匹配
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// ilike 生成大小写不敏感的 LIKE 条件
func ilike(col string) string {
	return "LOWER(" + col + `) LIKE ? ESCAPE '\'`
}

// visiblePosts 公开可见条件：已发布且发布时间不晚于 now
func visiblePosts(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("posts.status = ? AND posts.published_at IS NOT NULL AND posts.published_at <= ?",
		model.PostStatusPublished, now)
}

func exists(db *gorm.DB, m any, col, val string) (bool, error) {
	var cnt int64
	if err := db.Model(m).Where(col+" = ?", val).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
