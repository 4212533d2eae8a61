package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/eip-site/internal/model"
)

const (
	StatPostView         = "post_view"
	StatPublicationFetch = "pub_download"
)

// StatRepository 按天聚合的计数
type StatRepository interface {
	Record(ctx context.Context, entityType, entityID string, at time.Time) error
	Hits(ctx context.Context, entityType, entityID string, day time.Time) (int64, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository { return &statRepository{db: db} }

// Record upsert：不存在则插入 hits=1，否则 hits+1
func (r *statRepository) Record(ctx context.Context, entityType, entityID string, at time.Time) error {
	s := &model.DailyStat{
		ID:         uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		Day:        model.DateOf(at).Format(time.DateOnly),
		Hits:       1,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"hits":       gorm.Expr("content_daily_stats.hits + ?", 1),
			"updated_at": at.UTC(),
		}),
	}).Create(s).Error
}

func (r *statRepository) Hits(ctx context.Context, entityType, entityID string, day time.Time) (int64, error) {
	var s model.DailyStat
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND day = ?", entityType, entityID, model.DateOf(day).Format(time.DateOnly)).
		First(&s).Error
	if err != nil {
		return 0, translate(err)
	}
	return s.Hits, nil
}
