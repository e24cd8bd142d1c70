package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type PromptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, prompt *types.Prompt) (*types.Prompt, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Prompt, error)
	CreateVersion(ctx context.Context, tx *gorm.DB, version *types.PromptVersion) (*types.PromptVersion, error)
	GetVersions(ctx context.Context, tx *gorm.DB, promptID int64) ([]*types.PromptVersion, error)
}

type promptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptRepo(db *gorm.DB, baseLog *logger.Logger) PromptRepo {
	return &promptRepo{db: db, log: baseLog.With("repo", "PromptRepo")}
}

func (pr *promptRepo) Create(ctx context.Context, tx *gorm.DB, prompt *types.Prompt) (*types.Prompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(prompt).Error; err != nil {
		return nil, err
	}
	return prompt, nil
}

func (pr *promptRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Prompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result types.Prompt
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *promptRepo) CreateVersion(ctx context.Context, tx *gorm.DB, version *types.PromptVersion) (*types.PromptVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (pr *promptRepo) GetVersions(ctx context.Context, tx *gorm.DB, promptID int64) ([]*types.PromptVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.PromptVersion
	if err := transaction.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
