package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type ModelRepo interface {
	Create(ctx context.Context, tx *gorm.DB, model *types.GenerativeModel) (*types.GenerativeModel, error)
	Update(ctx context.Context, tx *gorm.DB, model *types.GenerativeModel) (*types.GenerativeModel, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, id int64) error
	// ChangedSince returns every model, deleted ones included, whose
	// updated_at or deleted_at is at or after the watermark. Token
	// prices are preloaded.
	ChangedSince(ctx context.Context, tx *gorm.DB, watermark time.Time) ([]*types.GenerativeModel, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.GenerativeModel, error)
	ReplaceTokenPrices(ctx context.Context, tx *gorm.DB, modelID int64, prices []*types.TokenPrice) error
}

type modelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelRepo(db *gorm.DB, baseLog *logger.Logger) ModelRepo {
	return &modelRepo{db: db, log: baseLog.With("repo", "ModelRepo")}
}

func (mr *modelRepo) Create(ctx context.Context, tx *gorm.DB, model *types.GenerativeModel) (*types.GenerativeModel, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if err := transaction.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

func (mr *modelRepo) Update(ctx context.Context, tx *gorm.DB, model *types.GenerativeModel) (*types.GenerativeModel, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	model.UpdatedAt = time.Now().UTC()
	if err := transaction.WithContext(ctx).Save(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

func (mr *modelRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.GenerativeModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"deleted_at": now, "updated_at": now}).Error
}

func (mr *modelRepo) ChangedSince(ctx context.Context, tx *gorm.DB, watermark time.Time) ([]*types.GenerativeModel, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.GenerativeModel
	err := transaction.WithContext(ctx).
		Preload("TokenPrices").
		Where("updated_at >= ? OR deleted_at >= ?", watermark, watermark).
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *modelRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.GenerativeModel, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.GenerativeModel
	err := transaction.WithContext(ctx).
		Preload("TokenPrices").
		Where("deleted_at IS NULL").
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *modelRepo) ReplaceTokenPrices(ctx context.Context, tx *gorm.DB, modelID int64, prices []*types.TokenPrice) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	err := transaction.WithContext(ctx).
		Where("model_id = ?", modelID).
		Delete(&types.TokenPrice{}).Error
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return nil
	}
	for _, p := range prices {
		p.ModelID = modelID
	}
	return transaction.WithContext(ctx).Create(&prices).Error
}
