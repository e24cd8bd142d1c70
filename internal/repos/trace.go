package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type TraceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, traces []*types.Trace) ([]*types.Trace, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Trace, error)
	GetByTraceID(ctx context.Context, tx *gorm.DB, traceID string) (*types.Trace, error)
	GetByProjectRowID(ctx context.Context, tx *gorm.DB, projectRowID int64) ([]*types.Trace, error)
}

type traceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTraceRepo(db *gorm.DB, baseLog *logger.Logger) TraceRepo {
	return &traceRepo{db: db, log: baseLog.With("repo", "TraceRepo")}
}

func (tr *traceRepo) Create(ctx context.Context, tx *gorm.DB, traces []*types.Trace) ([]*types.Trace, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if len(traces) == 0 {
		return []*types.Trace{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&traces).Error; err != nil {
		return nil, err
	}
	return traces, nil
}

func (tr *traceRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Trace, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.Trace
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

func (tr *traceRepo) GetByTraceID(ctx context.Context, tx *gorm.DB, traceID string) (*types.Trace, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.Trace
	err := transaction.WithContext(ctx).
		Where("trace_id = ?", traceID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *traceRepo) GetByProjectRowID(ctx context.Context, tx *gorm.DB, projectRowID int64) ([]*types.Trace, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.Trace
	if err := transaction.WithContext(ctx).
		Where("project_rowid = ?", projectRowID).
		Order("start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
