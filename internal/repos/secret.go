package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type SecretRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, secret *types.Secret) (*types.Secret, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Secret, error)
	// DeleteByName reports whether a row was removed; deleting a name
	// that does not exist is not an error.
	DeleteByName(ctx context.Context, tx *gorm.DB, name string) (bool, error)
}

type secretRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSecretRepo(db *gorm.DB, baseLog *logger.Logger) SecretRepo {
	return &secretRepo{db: db, log: baseLog.With("repo", "SecretRepo")}
}

func (sr *secretRepo) Upsert(ctx context.Context, tx *gorm.DB, secret *types.Secret) (*types.Secret, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	existing, err := sr.GetByName(ctx, transaction, secret.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Value = secret.Value
		if err := transaction.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err := transaction.WithContext(ctx).Create(secret).Error; err != nil {
		return nil, err
	}
	return secret, nil
}

func (sr *secretRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Secret, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.Secret
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *secretRepo) DeleteByName(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).Where("name = ?", name).Delete(&types.Secret{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
