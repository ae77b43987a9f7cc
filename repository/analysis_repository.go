package repository

import (
	"context"
	"errors"

	"DHX/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalysisRepository 分析记录数据访问接口
type AnalysisRepository interface {
	Upsert(ctx context.Context, rec *model.TrackAnalysis) error
	GetByHash(ctx context.Context, hash string) (*model.TrackAnalysis, error)
	List(ctx context.Context, limit int) ([]*model.TrackAnalysis, error)
}

// gormAnalysisRepository GORM 实现
type gormAnalysisRepository struct {
	db *gorm.DB
}

// NewGormAnalysisRepository 创建 GORM 分析仓库
func NewGormAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &gormAnalysisRepository{db: db}
}

// Upsert 按内容哈希插入或更新
func (r *gormAnalysisRepository) Upsert(ctx context.Context, rec *model.TrackAnalysis) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "content_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "artist", "album", "genre", "source", "audio_url",
				"bpm", "musical_key", "confidence", "duration", "updated_at",
			}),
		}).
		Create(rec).Error
}

// GetByHash 根据内容哈希获取记录，不存在时返回 nil
func (r *gormAnalysisRepository) GetByHash(ctx context.Context, hash string) (*model.TrackAnalysis, error) {
	var rec model.TrackAnalysis
	err := r.db.WithContext(ctx).Where("content_hash = ?", hash).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// List 最近更新的记录
func (r *gormAnalysisRepository) List(ctx context.Context, limit int) ([]*model.TrackAnalysis, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*model.TrackAnalysis
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
