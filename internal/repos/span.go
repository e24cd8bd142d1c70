package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type SpanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, spans []*types.Span) ([]*types.Span, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Span, error)
	GetByTraceRowIDs(ctx context.Context, tx *gorm.DB, traceRowIDs []int64) ([]*types.Span, error)
}

type spanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpanRepo(db *gorm.DB, baseLog *logger.Logger) SpanRepo {
	return &spanRepo{db: db, log: baseLog.With("repo", "SpanRepo")}
}

func (sr *spanRepo) Create(ctx context.Context, tx *gorm.DB, spans []*types.Span) ([]*types.Span, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(spans) == 0 {
		return []*types.Span{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&spans).Error; err != nil {
		return nil, err
	}
	return spans, nil
}

func (sr *spanRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Span, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Span
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *spanRepo) GetByTraceRowIDs(ctx context.Context, tx *gorm.DB, traceRowIDs []int64) ([]*types.Span, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Span
	if len(traceRowIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("trace_rowid IN ?", traceRowIDs).
		Order("start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
